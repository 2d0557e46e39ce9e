// Package validate holds the configuration error shared by every engine
// constructor. Construction fails fast; nothing is checked again per tick.
package validate

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Error names the offending field. errors.Is(err, ErrInvalidConfig) holds for
// every Error.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalidConfig }

func Fail(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func Positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return Fail(field, "must be a positive number, got %v", v)
	}
	return nil
}

func NonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Fail(field, "must not be negative, got %v", v)
	}
	return nil
}

// Fraction accepts values in (0, 1].
func Fraction(field string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v > 1 {
		return Fail(field, "must be in (0, 1], got %v", v)
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Prefix qualifies the field of a validation error with a parent name.
func Prefix(parent string, err error) error {
	var verr *Error
	if errors.As(err, &verr) {
		return &Error{Field: parent + "." + verr.Field, Reason: verr.Reason}
	}
	return err
}
