package config

import "fmt"

// ConfigurationError reports an invalid setting. It is fatal: nothing is
// processed when construction fails with it.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s=%q %s", e.Field, e.Value, e.Reason)
}

// ValidateMaxCharLimit rejects a non-positive chunk budget.
func ValidateMaxCharLimit(n int) error {
	if n <= 0 {
		return &ConfigurationError{
			Field:  "max_char_limit",
			Value:  fmt.Sprint(n),
			Reason: "must be a positive integer",
		}
	}
	return nil
}
