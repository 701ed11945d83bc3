package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CustomizedError carries a trace path, an i18n message id and the http status
// the error should be rendered with.
type CustomizedError interface {
	error
	Code(code int) CustomizedError
	HttpCode() int
	Message() string
	Origin() error
	Unwrap() error
}

type customizedError struct {
	trace   []string
	message string
	code    int
	err     error
}

func New(trace, message string, err error) CustomizedError {
	return &customizedError{
		trace:   []string{trace},
		message: message,
		code:    http.StatusInternalServerError,
		err:     err,
	}
}

// Trace prepends the caller's trace to err, keeping message and code.
// Plain errors are wrapped as internal errors.
func Trace(trace string, err error) error {
	if err == nil {
		return nil
	}
	var ce *customizedError
	if errors.As(err, &ce) {
		ce.trace = append([]string{trace}, ce.trace...)
		return ce
	}
	return New(trace, "error.internal", err)
}

func (e *customizedError) Code(code int) CustomizedError {
	e.code = code
	return e
}

func (e *customizedError) HttpCode() int {
	return e.code
}

func (e *customizedError) Message() string {
	return e.message
}

func (e *customizedError) Origin() error {
	return e.err
}

func (e *customizedError) Unwrap() error {
	return e.err
}

func (e *customizedError) Error() string {
	b := strings.Builder{}
	b.WriteString(strings.Join(e.trace, " -> "))
	b.WriteString(fmt.Sprintf(" [%d %s]", e.code, e.message))
	if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

// As exposes the CustomizedError behind err, if any.
func As(err error) (CustomizedError, bool) {
	var ce *customizedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}
