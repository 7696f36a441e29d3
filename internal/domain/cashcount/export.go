package cashcount

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Finance"

var workbookHeader = []string{"Client", "Balance", "Staff", "Last count", "Status", "Message"}

// WriteWorkbook renders finance rows as a single-sheet workbook. Missing and
// mismatched rows are highlighted.
func WriteWorkbook(rows []FinanceRow, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	mismatchStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8D7DA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("mismatch style: %w", err)
	}
	missingStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF3CD"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("missing style: %w", err)
	}

	title := fmt.Sprintf("Cash reconciliation for %s (America/Edmonton)", Today(generatedAt))
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(workbookHeader))
	for i, h := range workbookHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A2", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A2", "F2", headerStyle); err != nil {
		return nil, err
	}

	for i, r := range rows {
		line := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, line)
		values := []interface{}{r.ClientName, r.Balance, r.StaffInitials, r.LastCount, r.Status, r.Message}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
		style := 0
		switch r.Status {
		case StatusMismatch:
			style = mismatchStyle
		case StatusMissingCount:
			style = missingStyle
		}
		if style != 0 {
			end, _ := excelize.CoordinatesToCellName(len(workbookHeader), line)
			if err := f.SetCellStyle(sheetName, cell, end, style); err != nil {
				return nil, err
			}
		}
	}

	for col, width := range map[string]float64{"A": 28, "B": 14, "C": 8, "D": 18, "E": 15, "F": 60} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
