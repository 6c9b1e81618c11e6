package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olushola/classroom-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

const SessionsSheet = "Sessions"

var sessionsHeader = []string{
	"Started", "Student", "Class", "Subject", "Topic",
	"Language", "Lesson", "Progress", "Status", "Finished",
}

// SessionRow renders one journal row as sheet cells, times shown in loc.
func SessionRow(s models.LessonSession, loc *time.Location) []string {
	finished := ""
	if s.FinishedAt != nil {
		finished = s.FinishedAt.In(loc).Format("2006-01-02 15:04")
	}
	return []string{
		s.StartedAt.In(loc).Format("2006-01-02 15:04"),
		s.Student.Name,
		s.Student.ClassLevel.Label(),
		s.Student.Subject,
		s.Student.Topic,
		s.Student.Language.Label(),
		s.LessonTitle,
		fmt.Sprintf("%d/%d", len(s.CompletedSteps), s.StepCount),
		string(s.Status),
		finished,
	}
}

// BuildSessionsWorkbook writes the sessions sheet and returns the encoded xlsx.
func BuildSessionsWorkbook(sessions []models.LessonSession, loc *time.Location) (*bytes.Buffer, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SessionsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SessionsSheet, "A1", &sessionsHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, s := range sessions {
		row := SessionRow(s, loc)
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SessionsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %s: %w", cell, err)
		}
	}
	if err := ApplyDefaultExcelFormatting(f, SessionsSheet); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf, nil
}
