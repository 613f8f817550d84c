package history

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	sessionsSheet = "Sessions"
)

var (
	summaryHeaders  = []string{"Date", "Training", "Count", "Total Duration", "Total Seconds", "Exercises"}
	sessionsHeaders = []string{"Date", "Training", "Completed At", "Duration (s)", "Exercises", "Entry ID"}
)

// WriteWorkbook 导出训练记录为 Excel：汇总表 + 明细表
func WriteWorkbook(w io.Writer, groups []Group) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sessionsSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := writeHeader(f, summarySheet, summaryHeaders, headerStyle); err != nil {
		return err
	}
	if err := writeHeader(f, sessionsSheet, sessionsHeaders, headerStyle); err != nil {
		return err
	}

	row := 2
	for i, g := range groups {
		values := []interface{}{g.Date, g.TrainingName, g.Count, FormatDuration(g.TotalDuration), g.TotalDuration, g.ExerciseCount}
		if err := writeRow(f, summarySheet, i+2, values); err != nil {
			return err
		}
		for _, e := range g.Entries {
			values := []interface{}{g.Date, g.TrainingName, e.CompletedAt.Format("2006-01-02 15:04:05"), e.Duration, e.ExerciseCount, e.ID}
			if err := writeRow(f, sessionsSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
