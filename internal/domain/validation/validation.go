// Package validation holds the error type returned for malformed input.
package validation

import "errors"

type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}

	return e.Field + ": " + e.Message
}

func New(field, message string) error {
	return &Error{Field: field, Message: message}
}

// As reports whether err is (or wraps) a validation error.
func As(err error) (*Error, bool) {
	var v *Error
	if errors.As(err, &v) {
		return v, true
	}

	return nil, false
}
