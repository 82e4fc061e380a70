package folioengine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies a request failure. Each kind maps to one HTTP status.
type Kind string

const (
	KindAuthMissing        Kind = "auth_missing"
	KindAuthInvalid        Kind = "auth_invalid"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInvalidInput       Kind = "invalid_input"
	KindRateLimited        Kind = "rate_limited"
	KindStorageFailure     Kind = "storage_failure"
	KindPersistenceFailure Kind = "persistence_failure"
	KindNotFound           Kind = "not_found"
	KindInternal           Kind = "internal"
)

// Error is the error type returned by handlers and the components they call.
// Message is safe to show to clients; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can test with
// errors.Is(err, ErrAuthInvalid).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrAuthMissing        = &Error{Kind: KindAuthMissing, Message: "Access Denied"}
	ErrAuthInvalid        = &Error{Kind: KindAuthInvalid, Message: "Invalid Token"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrRateLimited        = &Error{Kind: KindRateLimited, Message: "Too many requests"}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func invalidInput(msg string, err error) *Error {
	return newError(KindInvalidInput, msg, err)
}

func storageFailure(msg string, err error) *Error {
	return newError(KindStorageFailure, msg, err)
}

func persistenceFailure(msg string, err error) *Error {
	return newError(KindPersistenceFailure, msg, err)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func statusFor(kind Kind) int {
	switch kind {
	case KindAuthMissing, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindAuthInvalid, KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var appErr *Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = statusFor(appErr.Kind)
		msg = appErr.Message
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= 500 {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}
