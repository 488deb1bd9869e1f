package apierr

import (
	"fmt"
	"net/http"
)

// Error is an error that already knows how it should be rendered over HTTP.
// Details carries the underlying cause for failures of external
// dependencies, where the client is allowed to see it.
type Error struct {
	Status  int
	Code    string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Details = details
	return &cp
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

// External marks a failure of an outside collaborator (OCR, LLM, storage).
func External(code string, msg string, cause error) *Error {
	e := New(http.StatusInternalServerError, code, fmt.Errorf("%s", msg))
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}
