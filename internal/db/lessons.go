package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/olushola/classroom-bot/internal/ctxutil"
	"github.com/olushola/classroom-bot/internal/models"
)

var ErrLessonNotFound = errors.New("lesson session not found")

// Journal persists lesson sessions so admins can export them.
type Journal struct {
	DB *sql.DB
}

func NewJournal(database *sql.DB) *Journal { return &Journal{DB: database} }

func (j *Journal) StartLesson(ctx context.Context, s models.LessonSession) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if s.Status == "" {
		s.Status = models.LessonActive
	}
	_, err := j.DB.ExecContext(ctx, `
		INSERT INTO lesson_sessions (
			id, chat_id, student_name, class_level, subject, topic, language,
			lesson_title, step_count, current_step, completed_steps, status, started_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		s.ID, s.ChatID, s.Student.Name, string(s.Student.ClassLevel), s.Student.Subject,
		s.Student.Topic, string(s.Student.Language), s.LessonTitle, s.StepCount,
		s.CurrentStep, pq.Array(nonNil(s.CompletedSteps)), string(s.Status), s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert lesson session: %w", err)
	}
	return nil
}

// SaveProgress stores the tracker position of an active session.
func (j *Journal) SaveProgress(ctx context.Context, id uuid.UUID, current int, completed []int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := j.DB.ExecContext(ctx, `
		UPDATE lesson_sessions
		SET current_step = $2, completed_steps = $3, updated_at = NOW()
		WHERE id = $1`,
		id, current, pq.Array(nonNil(completed)))
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return expectRow(res)
}

func (j *Journal) FinishLesson(ctx context.Context, id uuid.UUID, completed []int64, at time.Time) error {
	return j.closeLesson(ctx, id, models.LessonCompleted, completed, at)
}

func (j *Journal) LeaveLesson(ctx context.Context, id uuid.UUID, completed []int64, at time.Time) error {
	return j.closeLesson(ctx, id, models.LessonLeft, completed, at)
}

func (j *Journal) closeLesson(ctx context.Context, id uuid.UUID, status models.LessonStatus, completed []int64, at time.Time) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	// A completed lesson keeps its status when the student goes back afterwards.
	res, err := j.DB.ExecContext(ctx, `
		UPDATE lesson_sessions
		SET status = $2, completed_steps = $3, finished_at = COALESCE(finished_at, $4), updated_at = NOW()
		WHERE id = $1 AND status IN ('active', $2)`,
		id, string(status), pq.Array(nonNil(completed)), at)
	if err != nil {
		return fmt.Errorf("close lesson %s: %w", status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := j.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM lesson_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrLessonNotFound
		}
	}
	return nil
}

// AbandonLessons marks still active sessions as abandoned. Closed ones are left alone.
func (j *Journal) AbandonLessons(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	_, err := j.DB.ExecContext(ctx, `
		UPDATE lesson_sessions
		SET status = 'abandoned', finished_at = NOW(), updated_at = NOW()
		WHERE id = ANY($1::uuid[]) AND status = 'active'`,
		pq.Array(raw))
	if err != nil {
		return fmt.Errorf("abandon lessons: %w", err)
	}
	return nil
}

// ListLessons returns sessions started in [from, to), oldest first.
func (j *Journal) ListLessons(ctx context.Context, from, to time.Time) ([]models.LessonSession, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := j.DB.QueryContext(ctx, `
		SELECT id, chat_id, student_name, class_level, subject, topic, language,
		       lesson_title, step_count, current_step, completed_steps, status,
		       started_at, finished_at, updated_at
		FROM lesson_sessions
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at, id`, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.LessonSession
	for rows.Next() {
		var (
			s                 models.LessonSession
			class, lang, stat string
			finished          sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.ChatID, &s.Student.Name, &class, &s.Student.Subject,
			&s.Student.Topic, &lang, &s.LessonTitle, &s.StepCount, &s.CurrentStep,
			pq.Array(&s.CompletedSteps), &stat, &s.StartedAt, &finished, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Student.ClassLevel = models.ClassLevel(class)
		s.Student.Language = models.Language(lang)
		s.Status = models.LessonStatus(stat)
		if finished.Valid {
			t := finished.Time
			s.FinishedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLessonNotFound
	}
	return nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
