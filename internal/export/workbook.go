package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"selfcare/internal/model"
)

const (
	medicationsSheet = "Medications"
	strategiesSheet  = "Strategies"
)

var (
	medicationColumns = []string{"ID", "Name", "Dosage", "Strength", "Total", "Refill", "Refill reminder", "Daily reminder", "Comments"}
	strategyColumns   = []string{"ID", "Name", "Categories", "Viewers", "Comments allowed", "Description", "Created"}
)

// WriteWorkbook writes the user's medications and strategies as an xlsx workbook.
func WriteWorkbook(w io.Writer, medications []model.Medication, strategies []model.Strategy) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", medicationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(strategiesSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", strategiesSheet, err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	rows := make([][]interface{}, 0, len(medications))
	for _, m := range medications {
		refill := ""
		if m.Refill != nil {
			refill = m.Refill.Format("2006-01-02")
		}
		rows = append(rows, []interface{}{
			m.ID, m.Name,
			joinValue(m.Dosage, m.DosageUnit),
			joinValue(m.Strength, m.StrengthUnit),
			joinValue(m.Total, m.TotalUnit),
			refill, yesNo(m.RefillReminderEnabled), yesNo(m.DailyReminderEnabled), m.Comments,
		})
	}
	if err := writeSheet(f, medicationsSheet, header, medicationColumns, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, s := range strategies {
		names := make([]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			names = append(names, c.Name)
		}
		viewers := "Selected allies"
		if _, ok := s.Viewers().(model.AllAllies); ok {
			viewers = "All allies"
		}
		rows = append(rows, []interface{}{
			s.ID, s.Name, strings.Join(names, ", "), viewers,
			yesNo(s.CommentsAllowed), s.Description, s.CreatedAt.Format("2006-01-02"),
		})
	}
	if err := writeSheet(f, strategiesSheet, header, strategyColumns, rows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, columns []string, rows [][]interface{}) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	endCell, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", endCell, headerStyle); err != nil {
		return err
	}

	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func joinValue(value, unit string) string {
	return strings.TrimSpace(strings.TrimSpace(value) + " " + strings.TrimSpace(unit))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
