package extract

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimal parses a published numeric cell tolerantly. The publisher
// uses decimal commas with dots as thousands separators, but older files
// mix plain dot-decimal values in. Thousands separators are stripped, the
// decimal comma becomes a dot, and anything non-numeric or empty parses
// to 0 rather than failing; callers needing strict validation must check
// for zero-looking records explicitly.
func ParseDecimal(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ValueKind classifies a parsed figure by magnitude.
type ValueKind int

const (
	// KindPercentage is a fraction-of-one percentage variation.
	KindPercentage ValueKind = iota
	// KindIndexLevel is an index level in points.
	KindIndexLevel
	// KindAbsoluteCount is a raw count, not an index figure.
	KindAbsoluteCount
)

// ClassifyMagnitude disambiguates percentage variations from index levels
// and absolute counts: a value literally below 1 in magnitude is a
// percentage, above 1000 an absolute count, anything between an index
// level. The thresholds are empirical over the publication history, not a
// publisher contract; do not tune them without new information about true
// value ranges per era.
func ClassifyMagnitude(v float64) ValueKind {
	switch {
	case math.Abs(v) < 1:
		return KindPercentage
	case math.Abs(v) > 1000:
		return KindAbsoluteCount
	default:
		return KindIndexLevel
	}
}

// rowText joins a raw row's cells into a single lowercase string for
// substring searches.
func rowText(row []string) string {
	return strings.ToLower(strings.Join(row, " "))
}
