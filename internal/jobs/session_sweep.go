package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/olushola/classroom-bot/internal/session"
)

// Abandoner marks journal rows of lessons that were never finished.
type Abandoner interface {
	AbandonLessons(ctx context.Context, ids []uuid.UUID) error
}

// SweepSessions drops chat sessions idle for longer than idle and marks the
// unfinished lessons among them as abandoned.
func SweepSessions(store *session.Store, journal Abandoner, idle time.Duration, log *zap.Logger) Job {
	return func(ctx context.Context) error {
		evicted := store.Sweep(idle)
		if len(evicted) == 0 {
			return nil
		}
		sessionsEvicted.Add(float64(len(evicted)))

		var ids []uuid.UUID
		for _, e := range evicted {
			if e.Teaching && !e.Finished {
				ids = append(ids, e.SessionID)
			}
		}
		log.Info("idle sessions swept", zap.Int("evicted", len(evicted)), zap.Int("abandoned", len(ids)))
		if len(ids) == 0 || journal == nil {
			return nil
		}
		if err := journal.AbandonLessons(ctx, ids); err != nil {
			return fmt.Errorf("abandon %d lessons: %w", len(ids), err)
		}
		return nil
	}
}
