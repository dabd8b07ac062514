package schema

import "fmt"

// Code classifies a validation failure. The values are part of the HTTP API.
type Code string

const (
	CodeMissingField Code = "MISSING_FIELD"
	CodeInvalidField Code = "INVALID_FIELD"
	CodeInvalidType  Code = "INVALID_TYPE"
	CodeInvalidLen   Code = "INVALID_LENGTH"
	CodeUniqueField  Code = "UNIQUE_FIELD"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidColor Code = "INVALID_COLOR"
	CodeInvalidSVG   Code = "INVALID_SVG"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field path, e.g. "variations[2].name"
	Code   Code
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
