package extract

import (
	"log/slog"
	"strings"

	"indexcli/internal/family"
	"indexcli/pkg/contracts/domain"
)

// classifierScanRows bounds how deep into the grid the classifier looks.
// Every known layout generation declares itself within the first 150 rows.
const classifierScanRows = 150

// Classify inspects a parsed spreadsheet grid and determines which known
// structural generation it belongs to. The heuristic is best-effort over
// two decades of layout drift and never fails: on any internal error it
// degrades to the modern layout and lets the extractor discover the
// mismatch.
func Classify(grid [][]string, spec family.Spec) (profile domain.LayoutProfile) {
	profile = domain.LayoutProfile{
		Kind:                  domain.LayoutModern,
		ExpectedMetadataCount: spec.ExpectedMetadataCount,
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("layout classification panicked, assuming modern layout",
				slog.String("family", spec.ID),
				slog.Any("panic", r))
			profile = domain.LayoutProfile{
				Kind:                  domain.LayoutModern,
				ExpectedMetadataCount: spec.ExpectedMetadataCount,
			}
		}
	}()

	marker := strings.ToLower(spec.Marker)
	markerInFirst := 0
	markerInOther := 0
	legacyFound := false

	limit := len(grid)
	if limit > classifierScanRows {
		limit = classifierScanRows
	}
	for i := 0; i < limit; i++ {
		row := grid[i]
		if len(row) == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(row[0]), marker) {
			markerInFirst++
		}
		upper := len(row)
		if upper > 6 {
			upper = 6
		}
		for col := 1; col < upper; col++ {
			if strings.Contains(strings.ToLower(row[col]), marker) {
				markerInOther++
				break
			}
		}
		if !legacyFound {
			text := rowText(row)
			for _, phrase := range family.LegacyMarkers {
				if strings.Contains(text, phrase) {
					legacyFound = true
					break
				}
			}
		}
	}

	// Some historical years published the family label as a table value
	// rather than a row header; a majority of marker hits outside column
	// zero marks the columns as inverted.
	profile.InvertedColumns = markerInOther > markerInFirst && markerInOther > 0
	profile.HasLegacyArtifactFields = legacyFound

	switch {
	case profile.InvertedColumns:
		profile.Kind = domain.LayoutHistoricalInverted
	case legacyFound:
		profile.Kind = domain.LayoutHistorical
	default:
		profile.Kind = domain.LayoutModern
	}

	slog.Debug("classified spreadsheet layout",
		slog.String("family", spec.ID),
		slog.String("kind", string(profile.Kind)),
		slog.Int("marker_in_first", markerInFirst),
		slog.Int("marker_in_other", markerInOther),
		slog.Bool("legacy_markers", legacyFound))

	return profile
}
