package lesson

import (
	"errors"
	"fmt"
	"sort"

	"github.com/olushola/classroom-bot/internal/models"
)

var (
	ErrStepOutOfRange = errors.New("step index out of range")
	ErrNoSteps        = errors.New("lesson has no steps")
)

// Tracker follows a student's position in a lesson. The completed set only
// ever grows.
type Tracker struct {
	steps     []models.LessonStep
	current   int
	completed map[int]struct{}
}

func NewTracker(steps []models.LessonStep) (*Tracker, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	return &Tracker{
		steps:     steps,
		completed: make(map[int]struct{}, len(steps)),
	}, nil
}

func (t *Tracker) Current() int                   { return t.current }
func (t *Tracker) CurrentStep() models.LessonStep { return t.steps[t.current] }
func (t *Tracker) Steps() []models.LessonStep     { return t.steps }
func (t *Tracker) IsLast() bool                   { return t.current == len(t.steps)-1 }
func (t *Tracker) CompletedCount() int            { return len(t.completed) }

func (t *Tracker) IsCompleted(stepID int) bool {
	_, ok := t.completed[stepID]
	return ok
}

// CompletedIDs returns the completed step ids in ascending order.
func (t *Tracker) CompletedIDs() []int {
	out := make([]int, 0, len(t.completed))
	for id := range t.completed {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// SelectStep jumps to step i. Any in-range index is accepted.
func (t *Tracker) SelectStep(i int) error {
	if i < 0 || i >= len(t.steps) {
		return fmt.Errorf("select %d of %d: %w", i, len(t.steps), ErrStepOutOfRange)
	}
	t.current = i
	return nil
}

// CompleteCurrent marks the current step done and moves forward. On the last
// step the index stays put and true is returned: the lesson is complete.
func (t *Tracker) CompleteCurrent() bool {
	t.completed[t.steps[t.current].ID] = struct{}{}
	if t.current < len(t.steps)-1 {
		t.current++
		return false
	}
	return true
}

// PreviousStep moves back one step; it does nothing on the first step.
func (t *Tracker) PreviousStep() bool {
	if t.current == 0 {
		return false
	}
	t.current--
	return true
}
