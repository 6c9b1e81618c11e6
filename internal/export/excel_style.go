package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ApplyDefaultExcelFormatting makes row 1 a bold, filterable header and
// sizes every populated column from its content.
func ApplyDefaultExcelFormatting(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return nil
	}
	last := columnName(cols)

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", last+"1", style)
	}
	_ = f.AutoFilter(sheet, "A1:"+last+"1", nil)

	for c := 0; c < cols; c++ {
		width := 10.0
		for _, row := range rows {
			if c >= len(row) {
				continue
			}
			if w := float64(visualLen(row[c]))*1.1 + 2; w > width {
				width = w
			}
		}
		width = min(width, 60)
		col := columnName(c + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}
	return nil
}

// BuildSessionsReportFilename names an export covering [from, to].
func BuildSessionsReportFilename(from, to time.Time) string {
	base := fmt.Sprintf("Lesson sessions — %s — %s.xlsx",
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)
	return sanitizeFileName(base)
}

// 1 -> A; 27 -> AA
func columnName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

func visualLen(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}
