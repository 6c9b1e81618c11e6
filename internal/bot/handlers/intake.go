package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/olushola/classroom-bot/internal/bot/menu"
	"github.com/olushola/classroom-bot/internal/bot/shared/fsmutil"
	"github.com/olushola/classroom-bot/internal/intake"
	"github.com/olushola/classroom-bot/internal/logging"
	"github.com/olushola/classroom-bot/internal/metrics"
	"github.com/olushola/classroom-bot/internal/models"
	"github.com/olushola/classroom-bot/internal/observability"
	"github.com/olushola/classroom-bot/internal/session"
)

const (
	intakePrefix = "intake_"

	cbIntakeClass  = "intake_class_"
	cbIntakeLang   = "intake_lang_"
	cbIntakeEdit   = "intake_edit_"
	cbIntakeSubmit = "intake_submit"
	cbIntakeVoice  = "intake_voice"
	cbIntakeUpload = "intake_upload"
	cbIntakeBack   = "intake_back"
	cbIntakeCancel = "intake_cancel"
)

var fieldPrompts = map[intake.Field]string{
	intake.FieldName:       "👤 What is your name?",
	intake.FieldClassLevel: "🏫 Choose your class level:",
	intake.FieldSubject:    "📖 Which subject would you like to learn? (e.g. Mathematics, English, Physics)",
	intake.FieldTopic:      "🎯 Which topic should we cover? (e.g. Fractions, Photosynthesis)",
	intake.FieldLanguage:   "🌐 Choose your preferred language:",
}

// StartIntake puts the chat on a fresh intake form and asks for the first field.
// A lesson that was still open is recorded as left.
func (h *Handlers) StartIntake(ctx context.Context, chatID int64) {
	h.setAwaiting(chatID, "")
	_ = h.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Teaching() {
			h.leaveLesson(ctx, chatID, ctl)
		} else {
			ctl.Form().Reset()
		}
		h.sendText(chatID, welcomeText+"\n\nLet's get started with your personalized learning experience. "+
			"I'm here to help you understand any topic step by step.", menu.ForChat(h.isAdmin(chatID)))
		h.promptNext(chatID, ctl.Form())
		return nil
	})
}

// promptNext asks for the first missing field, or shows the review card.
func (h *Handlers) promptNext(chatID int64, form *intake.Form) {
	missing := form.Missing()
	if len(missing) == 0 {
		h.setAwaiting(chatID, "")
		text, markup := renderReview(form)
		h.sendText(chatID, text, markup)
		return
	}
	h.promptField(chatID, missing[0])
}

func (h *Handlers) promptField(chatID int64, f intake.Field) {
	switch f {
	case intake.FieldClassLevel:
		h.setAwaiting(chatID, "")
		h.sendText(chatID, fieldPrompts[f], classKeyboard())
	case intake.FieldLanguage:
		h.setAwaiting(chatID, "")
		h.sendText(chatID, fieldPrompts[f], languageKeyboard())
	default:
		h.setAwaiting(chatID, f)
		h.sendText(chatID, fieldPrompts[f], tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbIntakeCancel)),
		))
	}
}

func (h *Handlers) handleIntakeText(ctx context.Context, chatID int64, text string) {
	_ = h.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Teaching() {
			h.sendText(chatID, "Use the lesson buttons above, or /start for a new lesson.", nil)
			return nil
		}
		if fsmutil.IsCancelText(text) {
			h.cancelIntake(chatID, ctl)
			return nil
		}

		form := ctl.Form()
		field := h.getAwaiting(chatID)
		if field == "" {
			field = firstTextField(form)
		}
		if field == "" {
			// only keyboard fields are left
			h.promptNext(chatID, form)
			return nil
		}
		if err := form.Set(field, text); err != nil {
			logging.FromContext(ctx, h.log).Debug("intake input rejected", zap.Error(err))
		}
		if msg, bad := intake.Errors(form.Draft())[field]; bad {
			h.sendText(chatID, "⚠️ "+msg, nil)
			h.promptField(chatID, field)
			return nil
		}
		h.setAwaiting(chatID, "")
		h.promptNext(chatID, form)
		return nil
	})
}

func (h *Handlers) handleIntakeCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	data := cb.Data

	_ = h.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Teaching() {
			// card from a previous intake
			h.answer(cb.ID, "")
			return nil
		}
		form := ctl.Form()

		switch {
		case strings.HasPrefix(data, cbIntakeClass):
			h.answer(cb.ID, "")
			if err := form.SetClassLevel(models.ClassLevel(strings.TrimPrefix(data, cbIntakeClass))); err != nil {
				return nil
			}
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			h.promptNext(chatID, form)

		case strings.HasPrefix(data, cbIntakeLang):
			h.answer(cb.ID, "")
			if err := form.SetLanguage(models.Language(strings.TrimPrefix(data, cbIntakeLang))); err != nil {
				return nil
			}
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			h.promptNext(chatID, form)

		case strings.HasPrefix(data, cbIntakeEdit):
			h.answer(cb.ID, "")
			f := intake.Field(strings.TrimPrefix(data, cbIntakeEdit))
			if _, known := fieldPrompts[f]; !known {
				return nil
			}
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			h.promptField(chatID, f)

		case data == cbIntakeSubmit:
			h.submitIntake(ctx, cb, ctl)

		case data == cbIntakeVoice:
			on := form.ToggleVoice()
			if on {
				h.answer(cb.ID, "🎙 Listening… voice input is not available yet, please type.")
			} else {
				h.answer(cb.ID, "🎙 Voice input off")
			}
			text, markup := renderReview(form)
			_, _ = h.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))

		case data == cbIntakeUpload:
			h.answer(cb.ID, uploadStubText)

		case data == cbIntakeBack:
			h.answer(cb.ID, "")
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			h.promptNext(chatID, form)

		case data == cbIntakeCancel:
			h.answer(cb.ID, "")
			fsmutil.DisableMarkup(h.bot, chatID, messageID)
			h.cancelIntake(chatID, ctl)

		default:
			h.answer(cb.ID, "")
		}
		return nil
	})
}

func (h *Handlers) submitIntake(ctx context.Context, cb *tgbotapi.CallbackQuery, ctl *session.Controller) {
	chatID := cb.Message.Chat.ID
	rec, err := ctl.Submit(ctx)
	switch {
	case errors.Is(err, intake.ErrIncomplete):
		// stale card, nothing to do
		metrics.IntakeSubmissions.WithLabelValues("incomplete").Inc()
		h.answer(cb.ID, "")
		return
	case err != nil:
		metrics.IntakeSubmissions.WithLabelValues("error").Inc()
		metrics.HandlerErrors.Inc()
		logging.FromContext(ctx, h.log).Error("lesson setup failed", zap.Error(err))
		observability.CaptureCtxErr(ctx, err)
		h.answer(cb.ID, "")
		h.sendText(chatID, "⚠️ Could not prepare the lesson. Please try again.", nil)
		return
	}
	metrics.IntakeSubmissions.WithLabelValues("ok").Inc()
	metrics.LessonsStarted.Inc()
	h.answer(cb.ID, "🚀 Starting your lesson")
	fsmutil.DisableMarkup(h.bot, chatID, cb.Message.MessageID)

	l, _ := ctl.Lesson()
	h.journalErr(ctx, h.journal.StartLesson(ctx, models.LessonSession{
		ID:          ctl.SessionID(),
		ChatID:      chatID,
		Student:     rec,
		LessonTitle: l.Title,
		StepCount:   len(l.Steps),
		Status:      models.LessonActive,
		StartedAt:   h.now(),
	}), "journal.start")

	text, markup := renderTeaching(ctl)
	h.sendText(chatID, text, markup)
}

func (h *Handlers) cancelIntake(chatID int64, ctl *session.Controller) {
	h.setAwaiting(chatID, "")
	ctl.Form().Reset()
	h.sendText(chatID, "❌ Intake cleared. Press "+menu.NewLesson+" or send /start to begin again.", menu.ForChat(h.isAdmin(chatID)))
}

// firstTextField returns the first missing field typed as text, if any.
func firstTextField(form *intake.Form) intake.Field {
	for _, f := range form.Missing() {
		if f != intake.FieldClassLevel {
			return f
		}
	}
	return ""
}

func renderReview(form *intake.Form) (string, tgbotapi.InlineKeyboardMarkup) {
	d := form.Draft()
	var sb strings.Builder
	sb.WriteString("📝 Student Information\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", orDash(d.Name))
	fmt.Fprintf(&sb, "Class: %s\n", orDash(d.ClassLevel.Label()))
	fmt.Fprintf(&sb, "Subject: %s\n", orDash(d.Subject))
	fmt.Fprintf(&sb, "Topic: %s\n", orDash(d.Topic))
	fmt.Fprintf(&sb, "Language: %s\n", d.Language.Label())
	if form.Listening() {
		sb.WriteString("\n🎙 Listening…")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if form.CanSubmit() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Start Learning Session", cbIntakeSubmit),
		))
	}
	voice := "🎙 Voice input"
	if form.Listening() {
		voice = "⏹ Stop listening"
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Name", cbIntakeEdit+string(intake.FieldName)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Class", cbIntakeEdit+string(intake.FieldClassLevel)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Subject", cbIntakeEdit+string(intake.FieldSubject)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Topic", cbIntakeEdit+string(intake.FieldTopic)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 Language", cbIntakeEdit+string(intake.FieldLanguage)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(voice, cbIntakeVoice),
			tgbotapi.NewInlineKeyboardButtonData("📎 Upload", cbIntakeUpload),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbIntakeCancel),
		),
	)
	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func classKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, o := range models.ClassLevels {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(o.Label, cbIntakeClass+string(o.Value)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, fsmutil.BackCancelRow(cbIntakeBack, cbIntakeCancel))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, o := range models.Languages {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(o.Label, cbIntakeLang+string(o.Value)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row, fsmutil.BackCancelRow(cbIntakeBack, cbIntakeCancel))
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
