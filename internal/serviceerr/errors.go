package serviceerr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeValidation       Code = "validation_error"
	CodeAuth             Code = "auth_error"
	CodeSessionExpired   Code = "session_expired"
	CodeNetwork          Code = "network_error"
	CodeFetch            Code = "fetch_error"
	CodeInvalidRequest   Code = "invalid_request"
	CodeInvalidCSRFToken Code = "invalid_csrf_token"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeUnknown          Code = "unknown"
)

// Error is a service error with a machine readable code and an optional
// human readable description.
type Error struct {
	Err         Code
	Description string
}

var (
	ErrValidation       = &Error{Err: CodeValidation, Description: "Please fill in all fields."}
	ErrAuth             = &Error{Err: CodeAuth, Description: "Invalid credentials. Please try again."}
	ErrSessionExpired   = &Error{Err: CodeSessionExpired, Description: "session expired"}
	ErrNetwork          = &Error{Err: CodeNetwork, Description: "Connection error. Check your internet connection and try again."}
	ErrFetch            = &Error{Err: CodeFetch, Description: "Could not load posts. Please try again later."}
	ErrInvalidRequest   = &Error{Err: CodeInvalidRequest}
	ErrInvalidCSRFToken = &Error{Err: CodeInvalidCSRFToken, Description: "invalid csrf token"}
	ErrNotFound         = &Error{Err: CodeNotFound, Description: "not found"}
	ErrConflict         = &Error{Err: CodeConflict, Description: "already exists"}
	ErrUnknown          = &Error{Err: CodeUnknown, Description: "unknown error"}
)

func New(code Code, description string) *Error {
	return &Error{Err: code, Description: description}
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

// Is reports whether target is a service error with the same code, so
// errors.Is matches regardless of the description.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Err == e.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeValidation, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeAuth, CodeSessionExpired:
		return http.StatusUnauthorized
	case CodeInvalidCSRFToken:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeNetwork, CodeFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the code of the first service error in the chain of err,
// or CodeUnknown.
func CodeOf(err error) Code {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Err
	}

	return CodeUnknown
}
