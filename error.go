package bfilter

import (
	"html"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Code is an HTTP status code carried by an Error. A handler returns an Error to ask the
// filter for a specific error response instead of the generic 500.
type Code int

const (
	CodeUnknown             Code = 0
	CodeBadRequest          Code = http.StatusBadRequest
	CodeUnauthorized        Code = http.StatusUnauthorized
	CodeForbidden           Code = http.StatusForbidden
	CodeNotFound            Code = http.StatusNotFound
	CodeMethodNotAllowed    Code = http.StatusMethodNotAllowed
	CodeNotAcceptable       Code = http.StatusNotAcceptable
	CodeRequestTimeout      Code = http.StatusRequestTimeout
	CodeConflict            Code = http.StatusConflict
	CodeGone                Code = http.StatusGone
	CodeRequestTooLarge     Code = http.StatusRequestEntityTooLarge
	CodeUnsupportedMedia    Code = http.StatusUnsupportedMediaType
	CodeUnprocessable       Code = http.StatusUnprocessableEntity
	CodeTooManyRequests     Code = http.StatusTooManyRequests
	CodeInternalServerError Code = http.StatusInternalServerError
	CodeNotImplemented      Code = http.StatusNotImplemented
	CodeBadGateway          Code = http.StatusBadGateway
	CodeServiceUnavailable  Code = http.StatusServiceUnavailable
	CodeGatewayTimeout      Code = http.StatusGatewayTimeout
)

// Status returns the code as an HTTP status, mapping CodeUnknown to 500.
func (c Code) Status() int {
	if c == CodeUnknown {
		return http.StatusInternalServerError
	}

	return int(c)
}

// Error is a handled HTTP error.
type Error struct {
	code Code
	err  error
}

// NewError creates an error with code c around underlying, which may be nil.
func NewError(c Code, underlying error) *Error {
	return &Error{c, underlying}
}

func (e *Error) Code() Code    { return e.code }
func (e *Error) Unwrap() error { return e.err }

func (e *Error) Error() string {
	status := http.StatusText(int(e.code))
	if status == "" {
		status = "Unknown"
	}

	if e.err == nil {
		return status
	}

	return status + ": " + e.err.Error()
}

// Message is the text shown to the client: the underlying error's message, or the status
// text when there is none.
func (e *Error) Message() string {
	if e.err == nil {
		return http.StatusText(e.code.Status())
	}

	return e.err.Error()
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	if herr, ok := asError(err); ok {
		return herr.Code()
	}

	return CodeUnknown
}

func asError(err error) (*Error, bool) {
	var herr *Error
	ok := errors.As(err, &herr)

	return herr, ok
}

// errorBody renders the body of an error response.
func errorBody(status int, msg string) string {
	if msg == "" {
		msg = http.StatusText(status)
	}

	return html.EscapeString(msg) + "\n"
}
