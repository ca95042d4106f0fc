package validation

import (
	"fmt"
	"strings"
)

// FieldError is one violated rule, keyed by the offending field path
type FieldError struct {
	Field   string
	Message string
}

// Errors collects every rule a payload violates, in the order they were found
type Errors struct {
	entries []FieldError
}

// Add records a violation of field
func (e *Errors) Add(field, message string) {
	e.entries = append(e.entries, FieldError{Field: field, Message: message})
}

// Fields returns the recorded violations
func (e *Errors) Fields() []FieldError {
	out := make([]FieldError, len(e.entries))
	copy(out, e.entries)
	return out
}

// Has reports whether field has at least one violation
func (e *Errors) Has(field string) bool {
	for _, fe := range e.entries {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Len returns the number of violations
func (e *Errors) Len() int {
	return len(e.entries)
}

// Map groups messages by field path
func (e *Errors) Map() map[string][]string {
	out := make(map[string][]string, len(e.entries))
	for _, fe := range e.entries {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// Error summarizes the first violation and how many follow it
func (e *Errors) Error() string {
	if len(e.entries) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	b.WriteString(e.entries[0].Message)
	if n := len(e.entries) - 1; n > 0 {
		fmt.Fprintf(&b, " (and %d more error", n)
		if n > 1 {
			b.WriteString("s")
		}
		b.WriteString(")")
	}
	return b.String()
}

// Err returns e as an error, or nil when nothing was recorded
func (e *Errors) Err() error {
	if len(e.entries) == 0 {
		return nil
	}
	return e
}
