package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeValidation     = "AUTH_CLIENT_VALIDATION"
	textCodeUnauthorized   = "AUTH_CLIENT_UNAUTHORIZED"
	textCodeForbidden      = "AUTH_CLIENT_FORBIDDEN"
	textCodeNotFound       = "AUTH_CLIENT_NOT_FOUND"
	textCodeServerError    = "AUTH_CLIENT_SERVER_ERROR"
	textCodeNetworkError   = "AUTH_CLIENT_NETWORK_ERROR"
	textCodeUnknown        = "AUTH_CLIENT_UNKNOWN"
	textCodeNoRefreshToken = "AUTH_CLIENT_NO_REFRESH_TOKEN"
	textCodeStorage        = "AUTH_CLIENT_STORAGE"
)

// CodeNetworkFailure is the sentinel status recorded when a request never
// reached the server, so callers can distinguish it from real HTTP statuses.
const CodeNetworkFailure = -1

// ErrNoRefreshToken is returned by Refresh when neither the in-memory session
// nor the persisted record holds a refresh token. No network call is made.
var ErrNoRefreshToken = goerrors.New("no refresh token available", goerrors.CategoryAuth).
	WithTextCode(textCodeNoRefreshToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshSuperseded is returned when a refresh settled after the session it
// belonged to was already cleared; its result is discarded.
var ErrRefreshSuperseded = goerrors.New("refresh superseded by session teardown", goerrors.CategoryConflict).
	WithTextCode("AUTH_CLIENT_REFRESH_SUPERSEDED").
	WithCode(goerrors.CodeConflict)

// NormalizeStatusError maps an HTTP response status plus the server-supplied
// message into the uniform error shape surfaced to callers.
func NormalizeStatusError(status int, message string) *goerrors.Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("request failed (%d)", status)
	}

	var err *goerrors.Error
	switch {
	case status == http.StatusUnauthorized:
		err = goerrors.New(message, goerrors.CategoryAuth).
			WithTextCode(textCodeUnauthorized).
			WithCode(goerrors.CodeUnauthorized)
	case status == http.StatusForbidden:
		err = goerrors.New(message, goerrors.CategoryAuthz).
			WithTextCode(textCodeForbidden).
			WithCode(goerrors.CodeForbidden)
	case status == http.StatusNotFound:
		err = goerrors.New(message, goerrors.CategoryNotFound).
			WithTextCode(textCodeNotFound).
			WithCode(goerrors.CodeNotFound)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		err = goerrors.New(message, goerrors.CategoryValidation).
			WithTextCode(textCodeValidation).
			WithCode(goerrors.CodeBadRequest)
	case status >= http.StatusInternalServerError:
		err = goerrors.New(message, goerrors.CategoryInternal).
			WithTextCode(textCodeServerError).
			WithCode(goerrors.CodeInternal)
	default:
		err = goerrors.New(message, goerrors.CategoryOperation).
			WithTextCode(textCodeUnknown)
	}

	return err.WithMetadata(map[string]any{"status": status})
}

// NormalizeTransportError wraps failures where no response reached the caller
// (DNS, refused connections, timeouts, canceled contexts).
func NormalizeTransportError(err error) *goerrors.Error {
	msg := "request never reached the server"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	} else if errors.Is(err, context.Canceled) {
		msg = "request canceled"
	}

	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(textCodeNetworkError).
		WithMetadata(map[string]any{"status": CodeNetworkFailure})
}

// NormalizeValidationError converts an ozzo-validation result into the uniform
// error shape, keeping the field-scoped message intact.
func NormalizeValidationError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
		WithTextCode(textCodeValidation).
		WithCode(goerrors.CodeBadRequest)
}

// NormalizeError coerces any error into the uniform shape. Rich errors pass
// through untouched.
func NormalizeError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return NormalizeTransportError(err)
}

// IsUnauthorizedError will check for 401-class failures
func IsUnauthorizedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth && richErr.TextCode != textCodeNoRefreshToken
}

// IsNetworkError will check for failures where no response was received
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCodeNetworkError
}
