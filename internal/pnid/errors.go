package pnid

import (
	"errors"
	"fmt"
)

// InputError reports input that cannot be processed: an unreadable or empty
// image, a malformed component or OCR document, or invalid configuration.
// It is raised at the boundary or before any stage runs.
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is or wraps an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
