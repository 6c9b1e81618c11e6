package models

import (
	"time"

	"github.com/google/uuid"
)

type LessonStep struct {
	ID          int
	Title       string
	Explanation string
	Example     string // optional
	QuickCheck  []string
}

type Lesson struct {
	Title      string
	Objectives []string
	Steps      []LessonStep
}

type View string

const (
	ViewIntake   View = "intake"
	ViewTeaching View = "teaching"
)

type LessonStatus string

const (
	LessonActive    LessonStatus = "active"
	LessonCompleted LessonStatus = "completed"
	LessonLeft      LessonStatus = "left"
	LessonAbandoned LessonStatus = "abandoned"
)

// LessonSession is a journal row: who studied what and how far they got.
type LessonSession struct {
	ID             uuid.UUID
	ChatID         int64
	Student        StudentRecord
	LessonTitle    string
	StepCount      int
	CurrentStep    int
	CompletedSteps []int64
	Status         LessonStatus
	StartedAt      time.Time
	FinishedAt     *time.Time
	UpdatedAt      time.Time
}
