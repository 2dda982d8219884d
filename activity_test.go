package authclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestEventSinkFunc(t *testing.T) {
	var got authclient.AuthEvent
	sink := authclient.EventSinkFunc(func(_ context.Context, event authclient.AuthEvent) error {
		got = event
		return nil
	})

	err := sink.Record(context.Background(), authclient.AuthEvent{Type: authclient.EventLogout})
	require.NoError(t, err)
	assert.Equal(t, authclient.EventLogout, got.Type)
}

func TestMultiEventSink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}

	multi := authclient.MultiEventSink{first, nil, second}
	err := multi.Record(context.Background(), authclient.AuthEvent{Type: authclient.EventLoginSuccess})
	require.NoError(t, err)

	assert.True(t, first.has(authclient.EventLoginSuccess))
	assert.True(t, second.has(authclient.EventLoginSuccess))
}

func TestMultiEventSink_StopsOnError(t *testing.T) {
	boom := errors.New("sink unavailable")
	failing := authclient.EventSinkFunc(func(context.Context, authclient.AuthEvent) error {
		return boom
	})
	after := &recordingSink{}

	multi := authclient.MultiEventSink{failing, after}
	err := multi.Record(context.Background(), authclient.AuthEvent{Type: authclient.EventLogout})
	assert.ErrorIs(t, err, boom)
	assert.False(t, after.has(authclient.EventLogout))
}
