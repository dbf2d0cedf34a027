package config

import (
	"fmt"
	"strings"
)

// FieldError is a problem with a single environment variable.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Message)
}

// FieldErrors collects every problem found by Validate.
type FieldErrors []*FieldError

// Error implements the error interface.
func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Add records a problem with key.
func (e *FieldErrors) Add(key, format string, args ...any) {
	*e = append(*e, &FieldError{Key: key, Message: fmt.Sprintf(format, args...)})
}

// HasErrors returns true if there are any field errors.
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// Err returns e as an error, or nil when empty.
func (e FieldErrors) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}
