package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/olushola/classroom-bot/internal/bot/shared/fsmutil"
	"github.com/olushola/classroom-bot/internal/lesson"
	"github.com/olushola/classroom-bot/internal/logging"
	"github.com/olushola/classroom-bot/internal/metrics"
	"github.com/olushola/classroom-bot/internal/session"
)

const (
	teachPrefix = "teach_"

	cbTeachStep      = "teach_step_"
	cbTeachPrev      = "teach_prev"
	cbTeachNext      = "teach_next"
	cbTeachShare     = "teach_share"
	cbTeachVideo     = "teach_video"
	cbTeachNarration = "teach_narration"
	cbTeachBack      = "teach_back"
)

func (h *Handlers) handleTeachingCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	data := cb.Data

	_ = h.store.With(chatID, func(ctl *session.Controller) error {
		if !ctl.Teaching() {
			h.answer(cb.ID, "This lesson has ended. Send /start for a new one.")
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			return nil
		}
		log := logging.FromContext(ctx, h.log).With(zap.String("session_id", ctl.SessionID().String()))

		switch {
		case strings.HasPrefix(data, cbTeachStep):
			i, err := strconv.Atoi(strings.TrimPrefix(data, cbTeachStep))
			if err == nil {
				err = ctl.SelectStep(i)
			}
			if err != nil {
				h.answer(cb.ID, "")
				return nil
			}
			metrics.StepActions.WithLabelValues("select").Inc()
			h.answer(cb.ID, "")
			h.saveProgress(ctx, ctl)

		case data == cbTeachPrev:
			moved, _ := ctl.PreviousStep()
			h.answer(cb.ID, "")
			if !moved {
				return nil
			}
			metrics.StepActions.WithLabelValues("previous").Inc()
			h.saveProgress(ctx, ctl)

		case data == cbTeachNext:
			done, err := ctl.CompleteCurrent()
			if err != nil {
				h.answer(cb.ID, "")
				return nil
			}
			h.answer(cb.ID, "")
			switch done {
			case session.StepCompleted:
				metrics.StepActions.WithLabelValues("complete").Inc()
				h.saveProgress(ctx, ctl)
			case session.LessonFinished:
				metrics.StepActions.WithLabelValues("complete").Inc()
				metrics.LessonsCompleted.Inc()
				at, _ := ctl.FinishedAt()
				h.journalErr(ctx, h.journal.FinishLesson(ctx, ctl.SessionID(), completedIDs(ctl), at), "journal.finish")
				rec, _ := ctl.Record()
				l, _ := ctl.Lesson()
				h.sendText(chatID, fmt.Sprintf("🎉 Well done, %s! You have completed \"%s\".\n"+
					"Review any step above, or press ← Back to Student Intake for a new topic.", rec.Name, l.Title), nil)
			case session.LessonAlreadyFinished:
				return nil
			}

		case data == cbTeachShare:
			on, err := ctl.ToggleScreenShare(ctx)
			h.answer(cb.ID, "")
			if err != nil {
				metrics.ScreenShareRequests.WithLabelValues("refused").Inc()
				log.Warn("screen share refused", zap.Error(err))
				return nil
			}
			if on {
				metrics.ScreenShareRequests.WithLabelValues("started").Inc()
			} else {
				metrics.ScreenShareRequests.WithLabelValues("stopped").Inc()
			}

		case data == cbTeachVideo:
			h.answer(cb.ID, "🎬 Lesson videos are coming soon.")
			return nil

		case data == cbTeachNarration:
			h.answer(cb.ID, "🔊 Voice narration is coming soon.")
			return nil

		case data == cbTeachBack:
			h.answer(cb.ID, "")
			h.leaveLesson(ctx, chatID, ctl)
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			h.sendText(chatID, welcomeText, nil)
			h.promptNext(chatID, ctl.Form())
			return nil

		default:
			h.answer(cb.ID, "")
			return nil
		}

		text, markup := renderTeaching(ctl)
		_, _ = h.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
		return nil
	})
}

func (h *Handlers) saveProgress(ctx context.Context, ctl *session.Controller) {
	err := h.journal.SaveProgress(ctx, ctl.SessionID(), ctl.Tracker().Current(), completedIDs(ctl))
	h.journalErr(ctx, err, "journal.progress")
}

// leaveLesson records the open lesson as left and returns the chat to intake.
func (h *Handlers) leaveLesson(ctx context.Context, chatID int64, ctl *session.Controller) {
	id, completed := ctl.SessionID(), completedIDs(ctl)
	if !ctl.OnBack() {
		return
	}
	h.setAwaiting(chatID, "")
	h.journalErr(ctx, h.journal.LeaveLesson(ctx, id, completed, h.now()), "journal.leave")
}

// renderTeaching builds the lesson card for the controller's current state.
func renderTeaching(ctl *session.Controller) (string, tgbotapi.InlineKeyboardMarkup) {
	rec, _ := ctl.Record()
	l, _ := ctl.Lesson()
	tr := ctl.Tracker()
	step := tr.CurrentStep()

	var sb strings.Builder
	fmt.Fprintf(&sb, "📘 %s\n", welcomeText)
	fmt.Fprintf(&sb, "Hello %s! I'm excited to help you learn %s today.\n\n", rec.Name, rec.Subject)
	fmt.Fprintf(&sb, "🎯 %s\n", l.Title)
	fmt.Fprintf(&sb, "%s · %s\n\n", rec.ClassLevel.Label(), rec.Language.Label())

	sb.WriteString("Learning Objectives:\n")
	for _, o := range l.Objectives {
		fmt.Fprintf(&sb, "✅ %s\n", o)
	}

	fmt.Fprintf(&sb, "\n🏆 Progress (%d/%d):\n", tr.CompletedCount(), len(tr.Steps()))
	for i, s := range tr.Steps() {
		fmt.Fprintf(&sb, "%s %s\n", stepMarker(tr, i), s.Title)
	}
	if ctl.Sharing() {
		sb.WriteString("\n🖥 Screen sharing is on\n")
	}

	fmt.Fprintf(&sb, "\nStep %d: %s\n\n", tr.Current()+1, step.Title)
	fmt.Fprintf(&sb, "Explanation:\n%s\n", step.Explanation)
	if step.Example != "" {
		fmt.Fprintf(&sb, "\nWorked Example:\n%s\n", step.Example)
	}
	sb.WriteString("\nQuick Checks:\n")
	for i, q := range step.QuickCheck {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}

	var stepRow []tgbotapi.InlineKeyboardButton
	for i := range tr.Steps() {
		label := fmt.Sprintf("%s %d", stepMarker(tr, i), i+1)
		stepRow = append(stepRow, tgbotapi.NewInlineKeyboardButtonData(label, cbTeachStep+strconv.Itoa(i)))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if tr.Current() > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Previous", cbTeachPrev))
	}
	if tr.IsLast() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("✅ Complete Lesson", cbTeachNext))
	} else {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next Step ➡️", cbTeachNext))
	}

	share := "🖥 Start Screen Share"
	if ctl.Sharing() {
		share = "🖥 Stop Screen Share"
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		stepRow,
		nav,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(share, cbTeachShare),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Generate Lesson Video", cbTeachVideo),
			tgbotapi.NewInlineKeyboardButtonData("🔊 Voice Narration", cbTeachNarration),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("← Back to Student Intake", cbTeachBack),
		),
	)
	return sb.String(), markup
}

func stepMarker(tr *lesson.Tracker, i int) string {
	switch {
	case tr.IsCompleted(tr.Steps()[i].ID):
		return "✅"
	case i == tr.Current():
		return "▶️"
	default:
		return "⚪"
	}
}
