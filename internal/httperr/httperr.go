// Package httperr defines the error value carried from a failing pipeline
// stage to the error page. An error declares the HTTP status it should be
// answered with, optionally a generic code used as a fallback status, a
// human-readable message and the stack captured where it was raised.
package httperr

import (
	"errors"
	"net/http"
	"runtime/debug"
)

// Error is an error with an HTTP status attached.
type Error struct {
	// Status is the HTTP status to answer with. Zero means undeclared.
	Status int
	// Code is a generic error code. It is used as the response status when
	// Status is undeclared and Code is a 4xx or 5xx status.
	Code int
	// Message is shown to the client on the error page.
	Message string
	// Description is used in place of Message when Message is empty.
	Description string
	// Err is the underlying cause.
	Err error
	// Stack is the goroutine stack captured when the error was created.
	Stack []byte
}

// New returns an error answered with status and showing message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message, Stack: debug.Stack()}
}

// Wrap attaches a status and message to err.
func Wrap(err error, status int, message string) *Error {
	return &Error{Status: status, Message: message, Err: err, Stack: debug.Stack()}
}

// NotFound returns a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// BadRequest wraps err as a 400 error.
func BadRequest(err error, message string) *Error {
	return Wrap(err, http.StatusBadRequest, message)
}

// FromPanic converts a recovered panic value into a 500 error carrying stack.
func FromPanic(rec any, stack []byte) *Error {
	e := &Error{Status: http.StatusInternalServerError, Stack: stack}
	switch v := rec.(type) {
	case *Error:
		if len(v.Stack) > 0 {
			return v
		}
		// v may be shared between goroutines.
		cp := *v
		cp.Stack = stack
		return &cp
	case error:
		e.Err = v
	case string:
		e.Message = v
	default:
		e.Message = "panic"
	}
	return e
}

// WithStack returns err unchanged if something in its chain already carries a
// stack, and otherwise wraps it with the current goroutine stack.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if len(StackOf(err)) > 0 {
		return err
	}
	return &Error{Err: err, Stack: debug.Stack()}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Description
	}
	switch {
	case e.Err != nil && msg != "":
		return msg + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case msg != "":
		return msg
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusCoder is implemented by foreign errors that declare a status.
type statusCoder interface {
	StatusCode() int
}

// StatusOf resolves the response status for err: the first declared error
// status (4xx or 5xx) in the chain, then the first declared code that is one,
// then 500. Other statuses would not carry the error page to the client.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *Error:
			if validStatus(v.Status) {
				return v.Status
			}
		case *http.MaxBytesError:
			return http.StatusRequestEntityTooLarge
		case statusCoder:
			if validStatus(v.StatusCode()) {
				return v.StatusCode()
			}
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if v, ok := e.(*Error); ok && validStatus(v.Code) {
			return v.Code
		}
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message of err: the first message or
// description declared in the chain, otherwise err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		v, ok := e.(*Error)
		if !ok {
			continue
		}
		if v.Message != "" {
			return v.Message
		}
		if v.Description != "" {
			return v.Description
		}
	}
	return err.Error()
}

// StackOf returns the first stack captured in the chain of err.
func StackOf(err error) []byte {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if v, ok := e.(*Error); ok && len(v.Stack) > 0 {
			return v.Stack
		}
	}
	return nil
}

func validStatus(code int) bool {
	return code >= 400 && code <= 599
}
