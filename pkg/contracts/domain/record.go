package domain

import "time"

// ExtractionMethod records which path produced a canonical record.
type ExtractionMethod string

const (
	// MethodPrimary means the record was extracted from the downloaded
	// spreadsheet file.
	MethodPrimary ExtractionMethod = "primary"
	// MethodSecondary means the record was extracted from the interactive
	// portal session after the primary path failed.
	MethodSecondary ExtractionMethod = "secondary"
)

// LayoutKind names the structural generation a spreadsheet belongs to.
type LayoutKind string

const (
	LayoutModern             LayoutKind = "modern"
	LayoutHistorical         LayoutKind = "historical"
	LayoutHistoricalInverted LayoutKind = "historical_inverted"
)

// LayoutProfile is the classifier's verdict for one spreadsheet. It is
// derived per file and never persisted; every extraction recomputes it.
type LayoutProfile struct {
	Kind                    LayoutKind `json:"kind"`
	InvertedColumns         bool       `json:"inverted_columns"`
	HasLegacyArtifactFields bool       `json:"has_legacy_artifact_fields"`
	ExpectedMetadataCount   int        `json:"expected_metadata_count"`
}

// CanonicalRecord is the fixed-shape headline result for one (period,
// region) of one family. Numeric fields are decimal-comma normalized at
// parse time and otherwise preserved as published.
type CanonicalRecord struct {
	ID            int64            `json:"id,omitempty" db:"id"`
	Family        string           `json:"family" db:"family"`
	Period        Period           `json:"period"`
	Region        RegionCode       `json:"region" db:"region"`
	Method        ExtractionMethod `json:"method" db:"method"`
	IndexPoints   float64          `json:"index_points" db:"index_points"`
	MonthlyChange float64          `json:"monthly_change" db:"monthly_change"`
	AnnualChange  float64          `json:"annual_change" db:"annual_change"`
	YTDChange     float64          `json:"ytd_change" db:"ytd_change"`
	// Warning carries soft extraction diagnostics, such as a metadata
	// count outside the family's expected tolerance.
	Warning   string    `json:"warning,omitempty" db:"warning"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MetadataEntry is one fine-grained sub-indicator row belonging to a
// canonical record. Entries only exist for records produced by the
// primary path; the portal exposes headline figures alone.
type MetadataEntry struct {
	ID       int64  `json:"id,omitempty" db:"id"`
	RecordID int64  `json:"record_id" db:"record_id"`
	Category string `json:"category" db:"category"`
	Field    string `json:"field" db:"field"`
	// Raw value slots, kept as published (decimal commas included). Up
	// to four slots exist depending on the layout generation.
	Index   string `json:"index" db:"v_index"`
	Monthly string `json:"monthly" db:"v_monthly"`
	Annual  string `json:"annual" db:"v_annual"`
	YTD     string `json:"ytd" db:"v_ytd"`
}

// Empty reports whether every value slot is blank or a literal zero.
// Historical layouts emit all-zero rows for fields that did not yet
// exist in that period; those are dropped before persistence.
func (m MetadataEntry) Empty() bool {
	for _, v := range []string{m.Index, m.Monthly, m.Annual, m.YTD} {
		switch v {
		case "", "0", "0,0", "0,00", "0.0", "0.00":
		default:
			return false
		}
	}
	return true
}
