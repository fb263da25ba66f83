package app

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error that knows which HTTP status it should be reported as.
type Error struct {
	Status  int
	Message string
	Err     error
}

// NewError creates an Error with the given status. An empty message falls back
// to the standard status text.
func NewError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Message: message}
}

// WrapError creates an Error carrying an underlying cause.
func WrapError(status int, message string, err error) *Error {
	e := NewError(status, message)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status associated with err:
// the Error status if there is one in the chain, 500 otherwise.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status > 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
