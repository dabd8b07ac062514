package schema

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Collector accumulates field failures so that a request reports all of them at once.
type Collector struct {
	errs []error
}

// Add records a failure.
func (c *Collector) Add(key string, code Code, reason string, value any) {
	c.errs = append(c.errs, &ValidationError{Key: key, Code: code, Reason: reason, Value: value})
}

// Merge records every failure of err. Aggregates are flattened.
func (c *Collector) Merge(err error) {
	if err == nil {
		return
	}
	if inner := ValidationErrors(err); inner != nil {
		c.errs = append(c.errs, inner...)
		return
	}
	c.errs = append(c.errs, err)
}

// Len returns the number of recorded failures.
func (c *Collector) Len() int { return len(c.errs) }

// Err returns an *AggregateError or nil when nothing failed.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: c.errs}
}

// Required records CodeMissingField for an empty value and reports whether it was present.
func (c *Collector) Required(key, value string) bool {
	if strings.TrimSpace(value) == "" {
		c.Add(key, CodeMissingField, "required", nil)
		return false
	}
	return true
}

// Length checks the rune count of value against [min, max]. A negative bound is open.
func (c *Collector) Length(key, value string, min, max int) bool {
	n := utf8.RuneCountInString(value)
	if (min >= 0 && n < min) || (max >= 0 && n > max) {
		c.Add(key, CodeInvalidLen, LengthMessage(key, min, max), value)
		return false
	}
	return true
}

// MinItems checks that a list has at least min entries.
func (c *Collector) MinItems(key string, count, min int) bool {
	if count < min {
		c.Add(key, CodeInvalidLen, fmt.Sprintf("%s must contain at least %d item(s)", key, min), count)
		return false
	}
	return true
}

// LengthMessage renders the bounds of a length rule.
func LengthMessage(field string, min, max int) string {
	switch {
	case min == max:
		return fmt.Sprintf("%s must be %d characters long", field, min)
	case min < 0:
		return fmt.Sprintf("%s must be less than %d characters long", field, max)
	case max < 0:
		return fmt.Sprintf("%s must be more than %d characters long", field, min)
	default:
		return fmt.Sprintf("%s must be between %d and %d characters long", field, min, max)
	}
}
