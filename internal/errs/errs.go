// Package errs holds the error taxonomy shared by stores, services and handlers.
// Callers wrap one of the sentinels with detail and match with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrAuthorization   = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrState           = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Authorization(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func State(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

func Unauthenticated(what string) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, what)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error to the response code the API uses for it.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus is the inverse of HTTPStatus, used by the Go client. A message that
// already starts with the sentinel's text is not prefixed again.
func FromHTTPStatus(code int, message string) error {
	var base error
	switch code {
	case http.StatusBadRequest:
		base = ErrValidation
	case http.StatusUnauthorized:
		base = ErrUnauthenticated
	case http.StatusForbidden:
		base = ErrAuthorization
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusUnprocessableEntity:
		base = ErrState
	default:
		return fmt.Errorf("unexpected status %d: %s", code, message)
	}
	if message == base.Error() {
		return base
	}
	return fmt.Errorf("%w: %s", base, strings.TrimPrefix(message, base.Error()+": "))
}
