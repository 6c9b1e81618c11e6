// Package handlers turns Telegram updates into intake and teaching actions
// on the chat's session controller.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/olushola/classroom-bot/internal/bot/menu"
	"github.com/olushola/classroom-bot/internal/bot/shared/fsmutil"
	"github.com/olushola/classroom-bot/internal/ctxutil"
	"github.com/olushola/classroom-bot/internal/intake"
	"github.com/olushola/classroom-bot/internal/logging"
	"github.com/olushola/classroom-bot/internal/metrics"
	"github.com/olushola/classroom-bot/internal/models"
	"github.com/olushola/classroom-bot/internal/observability"
	"github.com/olushola/classroom-bot/internal/session"
	"github.com/olushola/classroom-bot/internal/tg"
)

const (
	welcomeText    = "Welcome to Mr. Olushola Matthew AI Agent class"
	uploadStubText = "📎 File upload is not available yet."

	unknownCommandText = "⚠️ Unknown command. Use /start"
)

// Journal records lesson sessions. Failures are reported but never stop the flow.
type Journal interface {
	StartLesson(ctx context.Context, s models.LessonSession) error
	SaveProgress(ctx context.Context, id uuid.UUID, current int, completed []int64) error
	FinishLesson(ctx context.Context, id uuid.UUID, completed []int64, at time.Time) error
	LeaveLesson(ctx context.Context, id uuid.UUID, completed []int64, at time.Time) error
	ListLessons(ctx context.Context, from, to time.Time) ([]models.LessonSession, error)
}

type Handlers struct {
	bot     tg.Bot
	store   *session.Store
	journal Journal
	log     *zap.Logger
	loc     *time.Location
	isAdmin func(chatID int64) bool
	now     func() time.Time

	mu       sync.Mutex
	awaiting map[int64]intake.Field
}

func New(bot tg.Bot, store *session.Store, journal Journal, log *zap.Logger, loc *time.Location, isAdmin func(int64) bool) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Handlers{
		bot:      bot,
		store:    store,
		journal:  journal,
		log:      log,
		loc:      loc,
		isAdmin:  isAdmin,
		now:      time.Now,
		awaiting: make(map[int64]intake.Field),
	}
}

// HandleMessage routes a text message: commands first, then the intake input.
func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	ctx = scoped(ctx, chatID, "message")

	switch text {
	case "/start", menu.NewLesson:
		h.StartIntake(ctx, chatID)
		return
	case "/export", menu.ExportSessions:
		if !h.isAdmin(chatID) {
			h.sendText(chatID, unknownCommandText, nil)
			return
		}
		go h.ExportSessions(ctx, chatID)
		return
	}

	switch {
	case msg.Document != nil || len(msg.Photo) > 0 || msg.Voice != nil:
		h.sendText(chatID, uploadStubText, nil)
	case strings.HasPrefix(text, "/") && !fsmutil.IsCancelText(text):
		h.sendText(chatID, unknownCommandText, nil)
	default:
		h.handleIntakeText(ctx, chatID, text)
	}
}

// HandleCallback routes inline button presses by their data prefix.
func (h *Handlers) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		h.answer(cb.ID, "")
		return
	}
	ctx = scoped(ctx, cb.Message.Chat.ID, cb.Data)
	switch {
	case strings.HasPrefix(cb.Data, intakePrefix):
		h.handleIntakeCallback(ctx, cb)
	case strings.HasPrefix(cb.Data, teachPrefix):
		h.handleTeachingCallback(ctx, cb)
	default:
		h.answer(cb.ID, "")
	}
}

func (h *Handlers) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := tg.Send(h.bot, c)
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		metrics.HandlerErrors.Inc()
		h.log.Warn("telegram send failed", zap.Error(err))
	}
	return m, err
}

func (h *Handlers) sendText(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, _ = h.send(msg)
}

func (h *Handlers) answer(callbackID, text string) {
	if _, err := tg.Request(h.bot, tgbotapi.NewCallback(callbackID, text)); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// journalErr logs and reports a failed journal write under the chat and
// operation carried by ctx.
func (h *Handlers) journalErr(ctx context.Context, err error, step string) {
	if err == nil {
		return
	}
	metrics.HandlerErrors.Inc()
	logging.FromContext(ctx, h.log).Error("journal write failed", zap.String("step", step), zap.Error(err))
	observability.CaptureCtxErr(ctx, fmt.Errorf("%s: %w", step, err))
}

// scoped makes ctx name the chat and the finer-grained operation.
func scoped(ctx context.Context, chatID int64, op string) context.Context {
	if _, ok := ctxutil.ChatID(ctx); !ok {
		ctx = ctxutil.WithChatID(ctx, chatID)
	}
	return ctxutil.WithOp(ctx, op)
}

func (h *Handlers) setAwaiting(chatID int64, f intake.Field) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f == "" {
		delete(h.awaiting, chatID)
		return
	}
	h.awaiting[chatID] = f
}

func (h *Handlers) getAwaiting(chatID int64) intake.Field {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.awaiting[chatID]
}

func completedIDs(ctl *session.Controller) []int64 {
	tr := ctl.Tracker()
	if tr == nil {
		return nil
	}
	ids := tr.CompletedIDs()
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
