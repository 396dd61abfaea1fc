// Package export renders tracker data as spreadsheets for staff download.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/wellness-api/internal/model"
)

const checkinSheet = "Check-ins"

var checkinHeaders = []string{
	"Week", "Energy", "Sleep", "Recovery", "Clarity",
	"RLT Sessions", "HBOT Sessions", "Notes", "Recorded By", "Updated",
}

var checkinWidths = []float64{8, 10, 10, 10, 10, 14, 14, 40, 20, 20}

// CheckinsXLSX writes one row per check-in, then an improvement row when one
// is given.
func CheckinsXLSX(protocol *model.Protocol, checkins []*model.Checkin, improvement *model.Improvement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(checkinSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(checkinSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to find sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range checkinHeaders {
		if err := setCell(f, col+1, 1, header); err != nil {
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(checkinSheet, name, name, checkinWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(checkinHeaders), 1)
	if err := f.SetCellStyle(checkinSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	row := 2
	for _, c := range checkins {
		values := []interface{}{
			c.WeekNumber, c.EnergyLevel, c.SleepQuality, c.Recovery, c.MentalClarity,
			c.RLTSessionsCompleted, c.HBOTSessionsCompleted, c.Notes, c.RecordedBy,
			c.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	if improvement != nil {
		label := fmt.Sprintf("Change wk %d-%d", improvement.FromWeek, improvement.ToWeek)
		values := []interface{}{label, improvement.EnergyLevel, improvement.SleepQuality, improvement.Recovery, improvement.MentalClarity}
		for col, v := range values {
			if err := setCell(f, col+1, row+1, v); err != nil {
				return nil, err
			}
		}
	}

	if protocol != nil {
		if err := f.SetDocProps(&excelize.DocProperties{
			Title:   "Cellular energy check-ins",
			Subject: protocol.ID.String(),
		}); err != nil {
			return nil, fmt.Errorf("failed to set document properties: %w", err)
		}
	}

	if err := f.SetPanes(checkinSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(checkinSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
