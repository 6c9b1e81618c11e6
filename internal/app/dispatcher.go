package app

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/olushola/classroom-bot/internal/ctxutil"
	"github.com/olushola/classroom-bot/internal/logging"
	"github.com/olushola/classroom-bot/internal/metrics"
	"github.com/olushola/classroom-bot/internal/observability"
)

// UpdateHandler is implemented by handlers.Handlers.
type UpdateHandler interface {
	HandleMessage(ctx context.Context, msg *tgbotapi.Message)
	HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery)
}

type Dispatcher struct {
	h       UpdateHandler
	limiter *ChatLimiter
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(h UpdateHandler, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{h: h, limiter: NewChatLimiter(), log: log}
}

// Run handles every update on its own goroutine until ctx is done or the
// channel closes, then waits for in-flight handlers.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Handle(ctx, upd)
			}()
		}
	}
}

func (d *Dispatcher) Handle(ctx context.Context, upd tgbotapi.Update) {
	chatID, op := route(upd)
	if op == "" {
		return
	}
	metrics.BotUpdates.Inc()

	unlock := d.limiter.lock(chatID)
	defer unlock()

	ctx = ctxutil.WithOp(ctxutil.WithChatID(ctx, chatID), op)
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.Inc()
			err := fmt.Errorf("panic in %s: %v", op, r)
			logging.FromContext(ctx, d.log).Error("handler panic", zap.Any("panic", r))
			observability.CaptureCtxErr(ctx, err)
		}
	}()

	switch op {
	case "message":
		d.h.HandleMessage(ctx, upd.Message)
	case "callback":
		d.h.HandleCallback(ctx, upd.CallbackQuery)
	}
}

// route picks the chat and kind of an update; op is empty for updates the bot ignores.
func route(upd tgbotapi.Update) (chatID int64, op string) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID, "callback"
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID, "message"
	default:
		return 0, ""
	}
}
