package authclient

import (
	"context"
)

var skipAuthCtxKey = &contextKey{"skip-auth"}
var skipUnauthorizedCtxKey = &contextKey{"skip-unauthorized-reaction"}
var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithSkipAuth marks the request so the mediator does not attach the bearer
// credential. Used for refresh and password reset calls, which must be valid
// without an existing access token.
func WithSkipAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthCtxKey, true)
}

// SkipAuth reports whether authorization attachment was suppressed.
func SkipAuth(ctx context.Context) bool {
	v, _ := ctx.Value(skipAuthCtxKey).(bool)
	return v
}

// WithSkipUnauthorizedReaction marks the request so an unauthorized response
// does not force-clear the local session. Used for logout and refresh, whose
// failure handling is owned by the session itself.
func WithSkipUnauthorizedReaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipUnauthorizedCtxKey, true)
}

// SkipUnauthorizedReaction reports whether the unauthorized reaction was
// suppressed for this request.
func SkipUnauthorizedReaction(ctx context.Context) bool {
	v, _ := ctx.Value(skipUnauthorizedCtxKey).(bool)
	return v
}

// WithUserContext sets the User in the given context
func WithUserContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext finds the user from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}
