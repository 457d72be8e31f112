// Package extract turns raw spreadsheet grids into canonical records and
// metadata entries. It owns the layout classifier, the anchor-based field
// extraction, and the decimal-comma-tolerant numeric parse shared across
// the three index families.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"indexcli/internal/family"
	"indexcli/pkg/contracts/domain"
)

// Extractor extracts canonical fields and metadata from a grid according
// to one family's schema descriptor.
type Extractor struct {
	spec   family.Spec
	logger *slog.Logger
}

// New creates an extractor for the given family.
func New(spec family.Spec, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{spec: spec, logger: logger}
}

// Canonical locates the family's anchor sections and reads the headline
// figures a fixed number of rows below each anchor. Period, region, and
// method are filled in by the coordinator; the extractor only knows the
// grid.
func (e *Extractor) Canonical(grid [][]string) (*domain.CanonicalRecord, error) {
	rec := &domain.CanonicalRecord{Family: e.spec.ID, Method: domain.MethodPrimary}

	for _, anchor := range e.spec.Anchors {
		anchorRow, err := e.findAnchor(grid, anchor.Title)
		if err != nil {
			return nil, err
		}

		figureRow := anchorRow + anchor.RowOffset
		if figureRow >= len(grid) {
			return nil, &ValidationError{
				Family:  e.spec.ID,
				Message: fmt.Sprintf("anchor %q at row %d has no figure row %d rows below", anchor.Title, anchorRow, anchor.RowOffset),
			}
		}

		row := grid[figureRow]
		for i, field := range anchor.Fields {
			col := anchor.Columns[i]
			var raw string
			if col < len(row) {
				raw = row[col]
			}
			setField(rec, field, ParseDecimal(raw))
		}
	}

	return rec, nil
}

// findAnchor locates an anchor row by case-insensitive substring match
// against the section title. When the exact historical phrasing is not
// present, a widened search scans every row's concatenated text for the
// title's keyword combination, logging candidates for diagnosis.
func (e *Extractor) findAnchor(grid [][]string, title string) (int, error) {
	lowerTitle := strings.ToLower(title)
	for i, row := range grid {
		if strings.Contains(rowText(row), lowerTitle) {
			return i, nil
		}
	}

	keywords := titleKeywords(lowerTitle)
	var candidates []int
	for i, row := range grid {
		text := rowText(row)
		all := true
		for _, kw := range keywords {
			if !strings.Contains(text, kw) {
				all = false
				break
			}
		}
		if all {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) > 0 {
		e.logger.Warn("anchor found only by widened keyword search",
			slog.String("family", e.spec.ID),
			slog.String("section", title),
			slog.Any("candidate_rows", candidates))
		return candidates[0], nil
	}

	return 0, &SectionNotFoundError{
		Family:     e.spec.ID,
		Section:    title,
		Strategies: []string{"exact substring", "widened keyword scan"},
	}
}

// titleKeywords splits a section title into the tokens the widened search
// requires to co-occur in a row.
func titleKeywords(title string) []string {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(title)
	return strings.Fields(cleaned)
}

func setField(rec *domain.CanonicalRecord, field string, v float64) {
	switch field {
	case family.FieldIndexPoints:
		rec.IndexPoints = v
	case family.FieldMonthlyChange:
		rec.MonthlyChange = v
	case family.FieldAnnualChange:
		rec.AnnualChange = v
	case family.FieldYTDChange:
		rec.YTDChange = v
	}
}

// Metadata groups the grid into category blocks delimited by recognized
// header rows and extracts one entry per sub-indicator row. Known legacy
// artifact fields whose value slots are all empty or zero are dropped:
// historical layouts emit spurious all-zero rows for fields that did not
// yet exist in that period.
func (e *Extractor) Metadata(grid [][]string, profile domain.LayoutProfile) []domain.MetadataEntry {
	var entries []domain.MetadataEntry
	category := ""
	inBlock := false

	for _, row := range grid {
		if e.matchesHeader(row) {
			inBlock = true
			category = ""
			continue
		}
		if !inBlock {
			continue
		}
		if isBlank(row) {
			inBlock = false
			continue
		}

		// Category and field labels always read from columns 0 and 1,
		// even for inverted-column layouts: the historically produced
		// data is structurally correct despite the marker appearing in
		// an unexpected column, so labels are not transposed.
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			category = strings.TrimSpace(row[0])
		}
		fieldName := cell(row, 1)
		if fieldName == "" {
			continue
		}

		entry := domain.MetadataEntry{
			Category: category,
			Field:    fieldName,
			Index:    cell(row, 2),
			Monthly:  cell(row, 3),
			Annual:   cell(row, 4),
			YTD:      cell(row, 5),
		}
		if profile.Kind != domain.LayoutModern {
			reconcileSlots(&entry)
		}

		if profile.HasLegacyArtifactFields && e.spec.IsLegacyArtifact(entry.Field) && entry.Empty() {
			e.logger.Debug("dropping all-zero legacy artifact field",
				slog.String("family", e.spec.ID),
				slog.String("field", entry.Field))
			continue
		}

		entries = append(entries, entry)
	}

	return entries
}

// reconcileSlots restores the modern slot order for historical rows that
// published the monthly variation before the index level. The magnitude
// heuristic decides: a percentage in the index slot next to an index
// level in the monthly slot means the two were swapped at publication.
func reconcileSlots(entry *domain.MetadataEntry) {
	if entry.Index == "" || entry.Monthly == "" {
		return
	}
	indexVal := ParseDecimal(entry.Index)
	monthlyVal := ParseDecimal(entry.Monthly)
	if indexVal == 0 {
		return
	}
	if ClassifyMagnitude(indexVal) == KindPercentage && ClassifyMagnitude(monthlyVal) == KindIndexLevel {
		entry.Index, entry.Monthly = entry.Monthly, entry.Index
	}
}

// CheckMetadataCount compares an extracted metadata count against the
// family baseline. Divergence beyond tolerance is a soft signal recorded
// on the record, never a failure: the baseline is empirical, not a
// publisher contract.
func (e *Extractor) CheckMetadataCount(n int) string {
	diff := n - e.spec.ExpectedMetadataCount
	if diff < 0 {
		diff = -diff
	}
	if diff <= e.spec.MetadataTolerance {
		return ""
	}
	warning := fmt.Sprintf("metadata count %d diverges from expected %d (tolerance %d)",
		n, e.spec.ExpectedMetadataCount, e.spec.MetadataTolerance)
	e.logger.Warn("metadata count outside tolerance",
		slog.String("family", e.spec.ID),
		slog.Int("count", n),
		slog.Int("expected", e.spec.ExpectedMetadataCount))
	return warning
}

// matchesHeader reports whether a row matches one of the family's known
// metadata header signatures across layout generations.
func (e *Extractor) matchesHeader(row []string) bool {
	for _, sig := range e.spec.MetadataHeaders {
		if len(row) < len(sig) {
			continue
		}
		match := true
		for i, want := range sig {
			got := strings.ToLower(strings.TrimSpace(row[i]))
			if !strings.Contains(got, want) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
