package policy

import (
	"fmt"
	"strings"
)

// ValidationError is one schema or cross-entity integrity failure.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s (value: %s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failure found by Validate. Callers that
// need a single platform error kind wrap it as a ConfigInvalid.
type ValidationErrors []ValidationError

func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, ValidationError{Field: field, Value: value, Message: message})
}

func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "configuration is invalid"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("configuration invalid with %d error(s): %s", len(e), strings.Join(msgs, "; "))
}
