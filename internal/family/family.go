// Package family holds the per-family schema descriptors that one generic
// ingestion engine consumes. The publisher ships three related index
// families; everything that differs between them (markers, section
// anchors, metadata header signatures, URL shape, portal geometry) lives
// here so the extraction and coordination code stays family-agnostic.
package family

import (
	"fmt"
	"strings"

	"indexcli/pkg/contracts/domain"
)

// Canonical field identifiers, referenced by anchor descriptors.
const (
	FieldIndexPoints   = "index_points"
	FieldMonthlyChange = "monthly_change"
	FieldAnnualChange  = "annual_change"
	FieldYTDChange     = "ytd_change"
)

// Legacy marker phrases that only appear in historical spreadsheet
// generations. Their presence marks a layout as historical regardless of
// where the family marker was found.
var LegacyMarkers = []string{
	"index, monthly variation",
	"index, in points",
}

// Anchor describes one section of the spreadsheet holding headline
// figures: the title to search for, how many rows below the title the
// figure row sits, and which column carries each canonical field.
type Anchor struct {
	Title     string
	RowOffset int
	Fields    []string
	Columns   []int
}

// Spec is the schema descriptor for one index family.
type Spec struct {
	ID     string
	Name   string
	Marker string

	// Spreadsheet layout.
	Anchors               []Anchor
	MetadataHeaders       [][]string
	LegacyArtifactFields  []string
	ExpectedMetadataCount int
	MetadataTolerance     int

	// Remote endpoints.
	URLPattern       string
	PortalReportCode string
	// PortalTokenCount is the number of value tokens expected after the
	// period label when a portal result row is split.
	PortalTokenCount int
}

// ReportURL builds the deterministic spreadsheet location for one
// (period, region) publication.
func (s Spec) ReportURL(base string, p domain.Period, r domain.RegionCode) string {
	return fmt.Sprintf(s.URLPattern, strings.TrimRight(base, "/"), p.Year, p.Month, strings.ToLower(r.String()))
}

// IsLegacyArtifact reports whether name matches one of the family's known
// historical artifact fields (case-insensitive).
func (s Spec) IsLegacyArtifact(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, f := range s.LegacyArtifactFields {
		if lower == f {
			return true
		}
	}
	return false
}

var specs = map[string]Spec{
	"cpi": {
		ID:     "cpi",
		Name:   "Consumer Price Index",
		Marker: "consumer price index",
		Anchors: []Anchor{
			{
				Title:     "index, in points",
				RowOffset: 2,
				Fields:    []string{FieldIndexPoints, FieldMonthlyChange, FieldAnnualChange, FieldYTDChange},
				Columns:   []int{1, 2, 3, 4},
			},
		},
		MetadataHeaders: [][]string{
			{"category", "field", "index", "monthly", "annual", "ytd"},
			{"group", "concept", "index", "monthly variation"},
			{"group", "concept", "index, in points", "index, monthly variation"},
		},
		LegacyArtifactFields:  []string{"harmonized index", "base effect"},
		ExpectedMetadataCount: 57,
		MetadataTolerance:     6,
		URLPattern:            "%s/statistics/cpi/%04d/%02d/cpi_%s.xlsx",
		PortalReportCode:      "11",
		PortalTokenCount:      4,
	},
	"ppi": {
		ID:     "ppi",
		Name:   "Producer Price Index",
		Marker: "producer price index",
		Anchors: []Anchor{
			{
				Title:     "percentage section",
				RowOffset: 1,
				Fields:    []string{FieldMonthlyChange, FieldAnnualChange, FieldYTDChange},
				Columns:   []int{1, 2, 3},
			},
			{
				Title:     "synthesis section",
				RowOffset: 1,
				Fields:    []string{FieldIndexPoints},
				Columns:   []int{1},
			},
		},
		MetadataHeaders: [][]string{
			{"category", "field", "index", "monthly", "annual", "ytd"},
			{"branch", "product", "index", "monthly variation"},
		},
		LegacyArtifactFields:  []string{"seasonal factor", "base effect"},
		ExpectedMetadataCount: 84,
		MetadataTolerance:     8,
		URLPattern:            "%s/statistics/ppi/%04d/%02d/ppi_%s.xlsx",
		PortalReportCode:      "12",
		PortalTokenCount:      4,
	},
	"cci": {
		ID:     "cci",
		Name:   "Construction Cost Index",
		Marker: "construction cost index",
		Anchors: []Anchor{
			{
				Title:     "index, in points",
				RowOffset: 3,
				Fields:    []string{FieldIndexPoints, FieldMonthlyChange, FieldAnnualChange, FieldYTDChange},
				Columns:   []int{1, 2, 3, 4},
			},
		},
		MetadataHeaders: [][]string{
			{"category", "field", "index", "monthly", "annual", "ytd"},
			{"component", "concept", "index", "monthly variation"},
		},
		LegacyArtifactFields:  []string{"harmonized index"},
		ExpectedMetadataCount: 32,
		MetadataTolerance:     4,
		URLPattern:            "%s/statistics/cci/%04d/%02d/cci_%s.xlsx",
		PortalReportCode:      "13",
		PortalTokenCount:      4,
	},
}

// Get returns the descriptor for a family id.
func Get(id string) (Spec, error) {
	spec, ok := specs[strings.ToLower(id)]
	if !ok {
		return Spec{}, fmt.Errorf("unknown index family: %s", id)
	}
	return spec, nil
}

// IDs returns the known family identifiers in stable order.
func IDs() []string {
	return []string{"cpi", "ppi", "cci"}
}

// All returns every registered descriptor in stable order.
func All() []Spec {
	out := make([]Spec, 0, len(specs))
	for _, id := range IDs() {
		out = append(out, specs[id])
	}
	return out
}
