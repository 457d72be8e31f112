package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// GridReader loads a downloaded spreadsheet into a raw row/column grid.
type GridReader struct {
	logger *slog.Logger
}

// NewGridReader creates a grid reader.
func NewGridReader(logger *slog.Logger) *GridReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridReader{logger: logger}
}

// ReadGrid opens an xlsx file and returns the rows of the sheet carrying
// the family marker. Sheet names have drifted across publication years,
// so the reader probes every sheet and picks the first whose early rows
// mention the marker, falling back to the first non-empty sheet.
func (r *GridReader) ReadGrid(path, marker string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	lowerMarker := strings.ToLower(marker)
	var fallback [][]string
	fallbackName := ""

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) == 0 {
			continue
		}
		if fallback == nil {
			fallback = rows
			fallbackName = name
		}
		limit := len(rows)
		if limit > classifierScanRows {
			limit = classifierScanRows
		}
		for _, row := range rows[:limit] {
			if strings.Contains(rowText(row), lowerMarker) {
				r.logger.Debug("selected sheet by marker",
					slog.String("sheet", name),
					slog.Int("rows", len(rows)))
				return rows, nil
			}
		}
	}

	if fallback != nil {
		r.logger.Warn("marker not found in any sheet, using first non-empty sheet",
			slog.String("sheet", fallbackName),
			slog.String("marker", marker))
		return fallback, nil
	}

	return nil, fmt.Errorf("spreadsheet %s has no readable sheets", path)
}
