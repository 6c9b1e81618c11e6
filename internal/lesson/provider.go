package lesson

import (
	"context"
	"fmt"

	"github.com/olushola/classroom-bot/internal/models"
)

type Request struct {
	ClassLevel models.ClassLevel
	Subject    string
	Topic      string
	Language   models.Language
}

func RequestFor(rec models.StudentRecord) Request {
	return Request{
		ClassLevel: rec.ClassLevel,
		Subject:    rec.Subject,
		Topic:      rec.Topic,
		Language:   rec.Language,
	}
}

// Provider produces the lesson shown when a student enters the teaching view.
type Provider interface {
	Lesson(ctx context.Context, req Request) (models.Lesson, error)
}

type ProviderFunc func(ctx context.Context, req Request) (models.Lesson, error)

func (f ProviderFunc) Lesson(ctx context.Context, req Request) (models.Lesson, error) {
	return f(ctx, req)
}

// TemplateProvider builds the fixed three-step lesson. Output depends only
// on topic and class level.
type TemplateProvider struct{}

func (TemplateProvider) Lesson(_ context.Context, req Request) (models.Lesson, error) {
	return models.Lesson{
		Title: fmt.Sprintf("Understanding %s", req.Topic),
		Objectives: []string{
			fmt.Sprintf("Define and explain %s", req.Topic),
			"Apply concepts through practical examples",
			"Solve related problems step by step",
		},
		Steps: []models.LessonStep{
			{
				ID:          1,
				Title:       "Introduction to the Concept",
				Explanation: fmt.Sprintf("Let me explain %s in simple terms that are perfect for %s level.", req.Topic, req.ClassLevel.Label()),
				Example:     "Here's a real-world example that will help you understand better...",
				QuickCheck: []string{
					"What does this concept mean in your own words?",
					"Can you think of an example from daily life?",
					"Why is this important to learn?",
				},
			},
			{
				ID:          2,
				Title:       "Step-by-Step Breakdown",
				Explanation: "Now let's break down the concept into smaller, manageable parts.",
				Example:     "Follow along as I demonstrate each step...",
				QuickCheck: []string{
					"What is the first step in solving this?",
					"Why do we do this step?",
					"What happens if we skip this step?",
				},
			},
			{
				ID:          3,
				Title:       "Practice Together",
				Explanation: "Let's work through some examples together to reinforce your understanding.",
				Example:     "Try this problem with me...",
				QuickCheck: []string{
					"Can you solve this similar problem?",
					"What strategy would you use here?",
					"How confident do you feel about this topic now?",
				},
			},
		},
	}, nil
}
