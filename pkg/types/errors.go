package types

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors match these through errors.Is.
var (
	// ErrValidation indicates an invariant of the annotation model was violated.
	ErrValidation = errors.New("validation failed")

	// ErrDecode indicates malformed input (NDJSON line, native JSON, dict form).
	ErrDecode = errors.New("decode failed")

	// ErrUnknownFormat indicates an unsupported label format was requested.
	ErrUnknownFormat = errors.New("unknown label format")

	// ErrFetch indicates the image resolver rejected a URL.
	ErrFetch = errors.New("fetch failed")
)

// ValidationError names the offending field of a failed invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is implements errors.Is support for ValidationError.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DecodeError wraps a decoding failure with its position.
// Line is 1-based and zero when the input is not line oriented.
type DecodeError struct {
	Line  int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Line > 0 && e.Field != "":
		return fmt.Sprintf("decode line %d, field %s: %v", e.Line, e.Field, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("decode line %d: %v", e.Line, e.Err)
	case e.Field != "":
		return fmt.Sprintf("decode field %s: %v", e.Field, e.Err)
	default:
		return fmt.Sprintf("decode: %v", e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for DecodeError.
func (e *DecodeError) Is(target error) bool {
	if target == ErrDecode {
		return true
	}
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError creates a decode error for field.
func NewDecodeError(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}

// UnknownFormatError reports an unsupported label format.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown label format %q", e.Format)
}

// Is implements errors.Is support for UnknownFormatError.
func (e *UnknownFormatError) Is(target error) bool {
	return target == ErrUnknownFormat
}
