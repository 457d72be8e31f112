package portal

import (
	"fmt"
	"strings"
)

// AuthenticationError means the portal login did not reach the
// post-login confirmation widget.
type AuthenticationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("portal authentication: %s: %v", e.Message, e.Cause)
	}
	return "portal authentication: " + e.Message
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error { return e.Cause }

// NavigationError wraps a failed interactive step with the session state
// in which it happened.
type NavigationError struct {
	State State
	Step  string
	Cause error
}

// Error implements the error interface.
func (e *NavigationError) Error() string {
	return fmt.Sprintf("portal navigation (%s, %s): %v", e.State, e.Step, e.Cause)
}

// Unwrap returns the underlying error.
func (e *NavigationError) Unwrap() error { return e.Cause }

// RowNotFoundError means the filtered result table held no row for the
// requested period. The visible period labels are carried for diagnosis.
type RowNotFoundError struct {
	Label   string
	Visible []string
}

// Error implements the error interface.
func (e *RowNotFoundError) Error() string {
	if len(e.Visible) == 0 {
		return fmt.Sprintf("portal row %q not found (result table empty)", e.Label)
	}
	return fmt.Sprintf("portal row %q not found; visible periods: %s", e.Label, strings.Join(e.Visible, ", "))
}
