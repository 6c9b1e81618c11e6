package handlers

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/olushola/classroom-bot/internal/bot/shared/fsmutil"
	"github.com/olushola/classroom-bot/internal/export"
	"github.com/olushola/classroom-bot/internal/logging"
	"github.com/olushola/classroom-bot/internal/metrics"
	"github.com/olushola/classroom-bot/internal/observability"
)

const (
	exportPendingKey = "export:sessions"
	exportWindowDays = 30
)

// ExportSessions sends admins the journal of the last 30 days as a workbook.
func (h *Handlers) ExportSessions(ctx context.Context, chatID int64) {
	if !h.isAdmin(chatID) {
		return
	}
	if !fsmutil.SetPending(chatID, exportPendingKey) {
		h.sendText(chatID, "⏳ An export is already running, please wait.", nil)
		return
	}
	defer fsmutil.ClearPending(chatID, exportPendingKey)

	to := h.now().In(h.loc)
	from := to.AddDate(0, 0, -exportWindowDays)

	if err := h.exportSessions(ctx, chatID, from, to); err != nil {
		metrics.HandlerErrors.Inc()
		ctx = scoped(ctx, chatID, "export.sessions")
		logging.FromContext(ctx, h.log).Error("sessions export failed", zap.Error(err))
		observability.CaptureCtxErr(ctx, err)
		h.sendText(chatID, "⚠️ Export failed. Please try again later.", nil)
	}
}

func (h *Handlers) exportSessions(ctx context.Context, chatID int64, from, to time.Time) error {
	sessions, err := h.journal.ListLessons(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list lessons: %w", err)
	}
	buf, err := export.BuildSessionsWorkbook(sessions, h.loc)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.BuildSessionsReportFilename(from, to),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📥 Lesson sessions: %d", len(sessions))
	if _, err := h.send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}
