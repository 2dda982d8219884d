package authclient

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Gateway is the remote auth boundary. The session core only depends on this
// request/response contract; the default implementation is HTTPGateway.
type Gateway interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context) (*User, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error
	DeleteAccount(ctx context.Context) error
}

// CredentialStore is the durable storage abstraction for the persisted
// credential record. Load returns (nil, nil) when no record exists for the
// namespace. Implementations are safe for concurrent use within a process;
// cross-process coordination is a documented non-goal.
type CredentialStore interface {
	Load(ctx context.Context, namespace string) (*CredentialRecord, error)
	Save(ctx context.Context, namespace string, rec *CredentialRecord) error
	Clear(ctx context.Context, namespace string) error
}

// TokenSource exposes the current access token to the request mediator.
type TokenSource interface {
	AccessToken() string
}

// SessionReader is the minimal view route guards need.
type SessionReader interface {
	IsAuthenticated() bool
}

// Refresher is what the RefreshScheduler drives on each tick.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
	ShouldRefresh() bool
}

// InvalidationHandler is signaled when an unauthorized response forces the
// local session to be cleared. The embedding application decides what
// "navigate to the unauthenticated entry point" means.
type InvalidationHandler func(ctx context.Context, reason error)

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetRefreshThreshold() time.Duration
	GetRefreshInterval() time.Duration
	GetRequestTimeout() time.Duration
	GetLoginRoute() string
	GetDefaultRoute() string
	GetRejectedRouteKey() string
}

// SimpleConfig is a plain-struct Config implementation.
type SimpleConfig struct {
	BaseURL          string
	RefreshThreshold time.Duration
	RefreshInterval  time.Duration
	RequestTimeout   time.Duration
	LoginRoute       string
	DefaultRoute     string
	RejectedRouteKey string
}

// DefaultConfig returns a SimpleConfig with the stock thresholds: refresh 5
// minutes before expiry, check once a minute, 10s request timeout.
func DefaultConfig(baseURL string) *SimpleConfig {
	return &SimpleConfig{
		BaseURL:          baseURL,
		RefreshThreshold: 5 * time.Minute,
		RefreshInterval:  time.Minute,
		RequestTimeout:   10 * time.Second,
		LoginRoute:       "/login",
		DefaultRoute:     "/",
		RejectedRouteKey: "rejected_route",
	}
}

func (c *SimpleConfig) GetBaseURL() string                 { return c.BaseURL }
func (c *SimpleConfig) GetRefreshThreshold() time.Duration { return c.RefreshThreshold }
func (c *SimpleConfig) GetRefreshInterval() time.Duration  { return c.RefreshInterval }
func (c *SimpleConfig) GetRequestTimeout() time.Duration   { return c.RequestTimeout }
func (c *SimpleConfig) GetLoginRoute() string              { return c.LoginRoute }
func (c *SimpleConfig) GetDefaultRoute() string            { return c.DefaultRoute }
func (c *SimpleConfig) GetRejectedRouteKey() string        { return c.RejectedRouteKey }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
