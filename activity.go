package authclient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthEventType identifies a session lifecycle event.
type AuthEventType string

const (
	EventLoginSuccess        AuthEventType = "login_success"
	EventLoginFailed         AuthEventType = "login_failed"
	EventLogout              AuthEventType = "logout"
	EventTokenExpired        AuthEventType = "token_expired"
	EventTokenRefreshed      AuthEventType = "token_refreshed"
	EventRegistrationSuccess AuthEventType = "registration_success"
	EventRegistrationFailed  AuthEventType = "registration_failed"
	EventSessionInvalidated  AuthEventType = "session_invalidated"
)

// AuthEvent describes a session transition outcome. Events are fire-and-forget
// with no backpressure.
type AuthEvent struct {
	ID         uuid.UUID      `json:"id"`
	Type       AuthEventType  `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// EventSink receives session events. Sinks run best-effort: a failing sink is
// logged, never propagated.
type EventSink interface {
	Record(ctx context.Context, event AuthEvent) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event AuthEvent) error

func (f EventSinkFunc) Record(ctx context.Context, event AuthEvent) error {
	return f(ctx, event)
}

type noopEventSink struct{}

func (noopEventSink) Record(context.Context, AuthEvent) error { return nil }

func normalizeEventSink(sink EventSink) EventSink {
	if sink == nil {
		return noopEventSink{}
	}
	return sink
}

// MultiEventSink fans an event out to every sink in order.
type MultiEventSink []EventSink

func (m MultiEventSink) Record(ctx context.Context, event AuthEvent) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
