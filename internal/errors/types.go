package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrSessionExpired marks failures after which the stored credential is gone
// and the user has to sign in again.
var ErrSessionExpired = stderrors.New("session expired")

// ErrNotFound is returned by credential stores for missing keys.
var ErrNotFound = stderrors.New("not found")

// APIError is the normalised description of a failed call.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	Type       string
	Details    map[string]interface{}
}

func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

func (e *APIError) WithDetails(details map[string]interface{}) *APIError {
	e.Details = details
	return e
}

// StatusError is returned alongside a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	API        *APIError
}

func NewStatusError(method, path string, status int, body []byte) *StatusError {
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
		API:        MapHTTPError(status, body),
	}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.API.Message)
}

// NetworkError wraps a transport failure where no response was received.
type NetworkError struct {
	Method string
	Path   string
	Err    error
	API    *APIError
}

func NewNetworkError(method, path string, err error) *NetworkError {
	return &NetworkError{Method: method, Path: path, Err: err, API: MapNetworkError(err)}
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.API.Code, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RenewalError reports a failed credential renewal. It always matches
// ErrSessionExpired and unwraps to the underlying cause.
type RenewalError struct {
	Cause error
}

func (e *RenewalError) Error() string {
	if e.Cause == nil {
		return "credential renewal failed: " + ErrSessionExpired.Error()
	}
	return "credential renewal failed: " + e.Cause.Error()
}

func (e *RenewalError) Unwrap() error { return e.Cause }

func (e *RenewalError) Is(target error) bool { return target == ErrSessionExpired }

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsAuth reports whether err is a rejected or expired credential.
func IsAuth(err error) bool {
	if stderrors.Is(err, ErrSessionExpired) {
		return true
	}
	switch StatusCode(err) {
	case 401, 403:
		return true
	}
	return false
}
