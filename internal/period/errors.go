package period

import "fmt"

// ConfigError marks an invalid period configuration. It is fatal: the
// coordinator aborts before any network I/O when planning fails.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("period config (%s): %s", e.Field, e.Message)
	}
	return "period config: " + e.Message
}
