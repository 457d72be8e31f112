package extract

import (
	"fmt"
	"strings"
)

// SectionNotFoundError means a spreadsheet did not contain an expected
// anchor section under any search strategy. It carries the strategies
// attempted so the aggregated task error is diagnosable without the file.
type SectionNotFoundError struct {
	Family     string
	Section    string
	Strategies []string
	Candidates []int
}

// Error implements the error interface.
func (e *SectionNotFoundError) Error() string {
	msg := fmt.Sprintf("section %q not found in %s spreadsheet (tried: %s)",
		e.Section, e.Family, strings.Join(e.Strategies, ", "))
	if len(e.Candidates) > 0 {
		msg += fmt.Sprintf("; widened search candidates at rows %v", e.Candidates)
	}
	return msg
}

// ValidationError means the spreadsheet parsed but its shape diverged
// from the family schema beyond tolerance.
type ValidationError struct {
	Family  string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s spreadsheet validation: %s", e.Family, e.Message)
}
