package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period identifies one monthly publication of an index family.
// It is a value type: equality is structural, ordering is chronological.
type Period struct {
	Month int `json:"month" validate:"required,min=1,max=12"`
	Year  int `json:"year" validate:"required"`
}

// NewPeriod builds a Period without validating its bounds; callers that
// accept external input validate through the planner configuration.
func NewPeriod(month, year int) Period {
	return Period{Month: month, Year: year}
}

// PeriodFromTime truncates t to its publication period.
func PeriodFromTime(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// AddMonths returns the period n months after p. Negative n moves backwards.
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	t = t.AddDate(0, n, 0)
	return PeriodFromTime(t)
}

// Before reports whether p is chronologically earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// After reports whether p is chronologically later than other.
func (p Period) After(other Period) bool {
	return other.Before(p)
}

// Compare returns -1, 0 or 1 ordering p against other chronologically.
func (p Period) Compare(other Period) int {
	switch {
	case p.Before(other):
		return -1
	case p.After(other):
		return 1
	default:
		return 0
	}
}

// String renders the period as MM/YYYY, the form used in task summaries
// and result notifications.
func (p Period) String() string {
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

// PortalLabel renders the month-abbreviation/2-digit-year token the portal
// uses as the leading label of its result rows ("jul/25").
func (p Period) PortalLabel() string {
	abbrev := strings.ToLower(time.Month(p.Month).String()[:3])
	return fmt.Sprintf("%s/%02d", abbrev, p.Year%100)
}

// PeriodRange is an inclusive span of periods.
type PeriodRange struct {
	From Period `json:"from"`
	To   Period `json:"to"`
}

// String renders the range as "MM/YYYY..MM/YYYY".
func (r PeriodRange) String() string {
	return r.From.String() + ".." + r.To.String()
}
