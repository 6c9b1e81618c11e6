// Package session owns the per-chat view state: which screen a student is
// on, the record they submitted and their progress through the lesson.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olushola/classroom-bot/internal/intake"
	"github.com/olushola/classroom-bot/internal/lesson"
	"github.com/olushola/classroom-bot/internal/models"
)

var (
	ErrNotTeaching = errors.New("session is not in the teaching view")
	ErrNotIntake   = errors.New("session is not in the intake view")
)

type Completion int

const (
	StepCompleted Completion = iota
	LessonFinished
	LessonAlreadyFinished
)

type Controller struct {
	provider lesson.Provider
	capturer Capturer
	now      func() time.Time

	view       models.View
	form       *intake.Form
	id         uuid.UUID
	record     models.StudentRecord
	lesson     models.Lesson
	tracker    *lesson.Tracker
	sharing    bool
	finishedAt *time.Time
}

func NewController(provider lesson.Provider, capturer Capturer) *Controller {
	if capturer == nil {
		capturer = GatedCapturer{}
	}
	return &Controller{
		provider: provider,
		capturer: capturer,
		now:      time.Now,
		view:     models.ViewIntake,
		form:     intake.NewForm(),
	}
}

func (c *Controller) View() models.View        { return c.view }
func (c *Controller) Form() *intake.Form       { return c.form }
func (c *Controller) Teaching() bool           { return c.view == models.ViewTeaching }
func (c *Controller) SessionID() uuid.UUID     { return c.id }
func (c *Controller) Sharing() bool            { return c.sharing }
func (c *Controller) Tracker() *lesson.Tracker { return c.tracker }

// Record returns the submitted record; ok is false outside the teaching view.
func (c *Controller) Record() (models.StudentRecord, bool) {
	return c.record, c.Teaching()
}

func (c *Controller) Lesson() (models.Lesson, bool) {
	return c.lesson, c.Teaching()
}

func (c *Controller) FinishedAt() (time.Time, bool) {
	if c.finishedAt == nil {
		return time.Time{}, false
	}
	return *c.finishedAt, true
}

// Submit submits the intake form and, when it is complete, enters the
// teaching view with the submitted record.
func (c *Controller) Submit(ctx context.Context) (models.StudentRecord, error) {
	if c.Teaching() {
		return models.StudentRecord{}, ErrNotIntake
	}
	rec, err := c.form.Submit()
	if err != nil {
		return models.StudentRecord{}, err
	}
	if err := c.OnIntakeSubmit(ctx, rec); err != nil {
		return models.StudentRecord{}, err
	}
	return rec, nil
}

// OnIntakeSubmit moves Intake -> Teaching. The lesson and tracker are built
// fresh on every entry.
func (c *Controller) OnIntakeSubmit(ctx context.Context, rec models.StudentRecord) error {
	if c.Teaching() {
		return ErrNotIntake
	}
	if rec.Language == "" {
		rec.Language = models.DefaultLanguage
	}
	if err := intake.Validate(rec); err != nil {
		return err
	}
	l, err := c.provider.Lesson(ctx, lesson.RequestFor(rec))
	if err != nil {
		return fmt.Errorf("lesson for %q: %w", rec.Topic, err)
	}
	tr, err := lesson.NewTracker(l.Steps)
	if err != nil {
		return fmt.Errorf("lesson for %q: %w", rec.Topic, err)
	}

	c.view = models.ViewTeaching
	c.id = uuid.New()
	c.record = rec
	c.lesson = l
	c.tracker = tr
	c.sharing = false
	c.finishedAt = nil
	return nil
}

// OnBack returns to a fresh intake form, dropping everything the teaching
// view held. It reports whether a transition happened.
func (c *Controller) OnBack() bool {
	if !c.Teaching() {
		return false
	}
	c.view = models.ViewIntake
	c.id = uuid.Nil
	c.record = models.StudentRecord{}
	c.lesson = models.Lesson{}
	c.tracker = nil
	c.sharing = false
	c.finishedAt = nil
	c.form.Reset()
	return true
}

func (c *Controller) SelectStep(i int) error {
	if !c.Teaching() {
		return ErrNotTeaching
	}
	return c.tracker.SelectStep(i)
}

func (c *Controller) PreviousStep() (bool, error) {
	if !c.Teaching() {
		return false, ErrNotTeaching
	}
	return c.tracker.PreviousStep(), nil
}

// CompleteCurrent completes the current step. Finishing the last step is
// reported once as LessonFinished and afterwards as LessonAlreadyFinished.
func (c *Controller) CompleteCurrent() (Completion, error) {
	if !c.Teaching() {
		return StepCompleted, ErrNotTeaching
	}
	if !c.tracker.CompleteCurrent() {
		return StepCompleted, nil
	}
	if c.finishedAt != nil {
		return LessonAlreadyFinished, nil
	}
	at := c.now()
	c.finishedAt = &at
	return LessonFinished, nil
}

// ToggleScreenShare turns sharing on after the capturer grants it, or off
// without asking. A refused request leaves sharing off and returns the
// capturer's error.
func (c *Controller) ToggleScreenShare(ctx context.Context) (bool, error) {
	if !c.Teaching() {
		return false, ErrNotTeaching
	}
	if c.sharing {
		c.sharing = false
		return false, nil
	}
	if err := c.capturer.RequestDisplay(ctx); err != nil {
		return false, fmt.Errorf("screen share: %w", err)
	}
	c.sharing = true
	return true, nil
}
