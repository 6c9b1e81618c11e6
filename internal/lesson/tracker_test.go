package lesson

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/olushola/classroom-bot/internal/models"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	l, err := TemplateProvider{}.Lesson(context.Background(), Request{ClassLevel: models.Primary4, Topic: "Shapes"})
	if err != nil {
		t.Fatal(err)
	}
	tr, err := NewTracker(l.Steps)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestNewTrackerNeedsSteps(t *testing.T) {
	if _, err := NewTracker(nil); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("err = %v, want ErrNoSteps", err)
	}
}

func TestCompleteCurrentAdvances(t *testing.T) {
	tr := newTracker(t)
	if tr.Current() != 0 || tr.CompletedCount() != 0 {
		t.Fatal("tracker must start at step 0 with nothing completed")
	}

	for i := 0; i < 2; i++ {
		if done := tr.CompleteCurrent(); done {
			t.Fatalf("lesson reported complete at index %d", i)
		}
		if tr.Current() != i+1 {
			t.Fatalf("index = %d, want %d", tr.Current(), i+1)
		}
		if !tr.IsCompleted(i + 1) {
			t.Fatalf("step id %d not completed", i+1)
		}
	}

	t.Run("last_step_is_terminal", func(t *testing.T) {
		if done := tr.CompleteCurrent(); !done {
			t.Fatal("completing the last step must signal lesson complete")
		}
		if tr.Current() != 2 {
			t.Fatalf("index moved to %d", tr.Current())
		}
		if got := tr.CompletedIDs(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
			t.Fatalf("completed = %v", got)
		}
	})

	t.Run("repeat_is_idempotent", func(t *testing.T) {
		if done := tr.CompleteCurrent(); !done {
			t.Fatal("last step should keep signalling completion")
		}
		if tr.CompletedCount() != 3 || tr.Current() != 2 {
			t.Fatalf("count=%d index=%d", tr.CompletedCount(), tr.Current())
		}
	})
}

func TestSelectStep(t *testing.T) {
	tr := newTracker(t)
	for _, i := range []int{2, 0, 1, 1} {
		if err := tr.SelectStep(i); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if tr.Current() != i {
			t.Fatalf("index = %d, want %d", tr.Current(), i)
		}
	}
	for _, i := range []int{-1, 3, 10} {
		if err := tr.SelectStep(i); !errors.Is(err, ErrStepOutOfRange) {
			t.Fatalf("select %d: err = %v", i, err)
		}
		if tr.Current() != 1 {
			t.Fatal("out of range select must not move")
		}
	}
}

func TestSelectThenCompleteNeverShrinks(t *testing.T) {
	tr := newTracker(t)
	_ = tr.SelectStep(2)
	tr.CompleteCurrent()
	_ = tr.SelectStep(0)
	tr.CompleteCurrent()
	if got := tr.CompletedIDs(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("completed = %v", got)
	}
	if tr.Current() != 1 {
		t.Fatalf("index = %d, want 1", tr.Current())
	}
}

func TestPreviousStep(t *testing.T) {
	tr := newTracker(t)
	if tr.PreviousStep() {
		t.Fatal("previous at step 0 must be a no-op")
	}
	_ = tr.SelectStep(2)
	if !tr.PreviousStep() || tr.Current() != 1 {
		t.Fatalf("index = %d, want 1", tr.Current())
	}
}
