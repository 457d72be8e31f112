// Package period plans the ordered sequence of monthly periods a run
// processes. Planning is a pure function of its inputs: no I/O happens
// here, and an invalid configuration fails before any network work starts.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"indexcli/pkg/contracts/domain"
)

// EndMode selects how the end of the planning range is resolved.
type EndMode string

const (
	// EndNow resolves the range end to the current month.
	EndNow EndMode = "now"
	// EndNowMinus resolves the range end to the current month minus a
	// configured number of months.
	EndNowMinus EndMode = "now_minus"
	// EndExplicit uses a configured period verbatim.
	EndExplicit EndMode = "explicit"
)

// EndSpec describes the end of the planning range.
type EndSpec struct {
	Mode        EndMode
	MinusMonths int
	Explicit    domain.Period
}

// ParseEnd parses the three accepted end forms: "now", "now-N", or an
// explicit "MM/YYYY" period.
func ParseEnd(raw string) (EndSpec, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch {
	case s == "now":
		return EndSpec{Mode: EndNow}, nil
	case strings.HasPrefix(s, "now-"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "now-"))
		if err != nil || n < 0 {
			return EndSpec{}, &ConfigError{Field: "end", Message: fmt.Sprintf("invalid now-offset %q", raw)}
		}
		return EndSpec{Mode: EndNowMinus, MinusMonths: n}, nil
	default:
		p, err := ParsePeriod(raw)
		if err != nil {
			return EndSpec{}, err
		}
		return EndSpec{Mode: EndExplicit, Explicit: p}, nil
	}
}

// ParsePeriod parses a "MM/YYYY" period token.
func ParsePeriod(raw string) (domain.Period, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return domain.Period{}, &ConfigError{Field: "period", Message: fmt.Sprintf("expected MM/YYYY, got %q", raw)}
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return domain.Period{}, &ConfigError{Field: "period", Message: fmt.Sprintf("invalid month in %q", raw)}
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return domain.Period{}, &ConfigError{Field: "period", Message: fmt.Sprintf("invalid year in %q", raw)}
	}
	return domain.Period{Month: month, Year: year}, nil
}

// Config is a planning request for one family.
type Config struct {
	From domain.Period
	End  EndSpec
	// Guard bounds reject obviously wrong configuration before any
	// network I/O. Years outside [MinYear, MaxYear] fail planning.
	MinYear int
	MaxYear int
	// Now is injectable for tests; zero means time.Now.
	Now time.Time
}

func (c Config) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// resolveEnd turns the end spec into a concrete period.
func (c Config) resolveEnd() domain.Period {
	switch c.End.Mode {
	case EndExplicit:
		return c.End.Explicit
	case EndNowMinus:
		return domain.PeriodFromTime(c.now()).AddMonths(-c.End.MinusMonths)
	default:
		return domain.PeriodFromTime(c.now())
	}
}

// Plan enumerates every month from the configured start to the resolved
// end, inclusive, in chronological order.
func Plan(cfg Config) ([]domain.Period, error) {
	end := cfg.resolveEnd()
	if err := validate(cfg, end); err != nil {
		return nil, err
	}

	var out []domain.Period
	for p := cfg.From; !p.After(end); p = p.Next() {
		out = append(out, p)
	}
	return out, nil
}

// PlanGaps returns the members of the full plan that are absent from
// existing, preserving chronological order. An empty result means the
// storage already covers the configured range; callers treat that as
// nothing to do, not as an error.
func PlanGaps(cfg Config, existing []domain.Period) ([]domain.Period, error) {
	full, err := Plan(cfg)
	if err != nil {
		return nil, err
	}

	have := make(map[domain.Period]struct{}, len(existing))
	for _, p := range existing {
		have[p] = struct{}{}
	}

	var out []domain.Period
	for _, p := range full {
		if _, ok := have[p]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func validate(cfg Config, end domain.Period) error {
	for _, p := range []domain.Period{cfg.From, end} {
		if p.Month < 1 || p.Month > 12 {
			return &ConfigError{Field: "month", Message: fmt.Sprintf("month %d out of range in %s", p.Month, p)}
		}
		if cfg.MinYear > 0 && p.Year < cfg.MinYear {
			return &ConfigError{Field: "year", Message: fmt.Sprintf("year %d before guard minimum %d", p.Year, cfg.MinYear)}
		}
		if cfg.MaxYear > 0 && p.Year > cfg.MaxYear {
			return &ConfigError{Field: "year", Message: fmt.Sprintf("year %d after guard maximum %d", p.Year, cfg.MaxYear)}
		}
	}
	if cfg.From.After(end) {
		return &ConfigError{Field: "range", Message: fmt.Sprintf("start %s is after end %s", cfg.From, end)}
	}
	return nil
}
