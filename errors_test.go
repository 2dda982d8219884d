package authclient_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestNormalizeStatusError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		message  string
		category goerrors.Category
	}{
		{"unauthorized", 401, "invalid credentials", goerrors.CategoryAuth},
		{"forbidden", 403, "not allowed", goerrors.CategoryAuthz},
		{"not found", 404, "no such user", goerrors.CategoryNotFound},
		{"bad request", 400, "bad payload", goerrors.CategoryValidation},
		{"unprocessable", 422, "bad payload", goerrors.CategoryValidation},
		{"server error", 500, "boom", goerrors.CategoryInternal},
		{"bad gateway", 502, "upstream down", goerrors.CategoryInternal},
		{"other", 418, "teapot", goerrors.CategoryOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authclient.NormalizeStatusError(tt.status, tt.message)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.status, err.Metadata["status"])
		})
	}
}

func TestNormalizeStatusError_EmptyMessageFallsBack(t *testing.T) {
	err := authclient.NormalizeStatusError(401, "")
	assert.Equal(t, "Unauthorized", err.Message)
}

func TestNormalizeTransportError(t *testing.T) {
	err := authclient.NormalizeTransportError(context.DeadlineExceeded)
	assert.Equal(t, "request timed out", err.Message)
	assert.Equal(t, authclient.CodeNetworkFailure, err.Metadata["status"])
	assert.True(t, authclient.IsNetworkError(err))

	err = authclient.NormalizeTransportError(context.Canceled)
	assert.Equal(t, "request canceled", err.Message)

	err = authclient.NormalizeTransportError(errors.New("connection refused"))
	assert.Equal(t, "request never reached the server", err.Message)
	assert.True(t, authclient.IsNetworkError(err))
}

func TestNormalizeError_RichErrorsPassThrough(t *testing.T) {
	original := authclient.NormalizeStatusError(404, "no such route")
	normalized := authclient.NormalizeError(original)
	assert.Same(t, original, normalized)

	assert.Nil(t, authclient.NormalizeError(nil))

	wrapped := authclient.NormalizeError(errors.New("dial tcp: connection refused"))
	require.NotNil(t, wrapped)
	assert.True(t, authclient.IsNetworkError(wrapped))
}

func TestIsUnauthorizedError(t *testing.T) {
	assert.True(t, authclient.IsUnauthorizedError(authclient.NormalizeStatusError(401, "nope")))
	assert.False(t, authclient.IsUnauthorizedError(authclient.NormalizeStatusError(500, "boom")))
	assert.False(t, authclient.IsUnauthorizedError(errors.New("plain")))
	assert.False(t, authclient.IsUnauthorizedError(nil))

	// a missing refresh token is an auth-category error but not a server 401
	assert.False(t, authclient.IsUnauthorizedError(authclient.ErrNoRefreshToken))
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, authclient.IsNetworkError(nil))
	assert.False(t, authclient.IsNetworkError(errors.New("plain")))
	assert.False(t, authclient.IsNetworkError(authclient.NormalizeStatusError(500, "boom")))
}
