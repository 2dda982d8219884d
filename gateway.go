package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	routeLogin                = "/auth/login"
	routeRegister             = "/auth/register"
	routeRefresh              = "/auth/refresh"
	routeLogout               = "/auth/logout"
	routeProfile              = "/profile"
	routeUpdateProfile        = "/auth/profile"
	routeChangePassword       = "/auth/change-password"
	routePasswordReset        = "/auth/reset-password"
	routePasswordResetConfirm = "/auth/reset-password/confirm"
	routeDeleteAccount        = "/auth/account"
)

// responses larger than this are truncated before decoding
const maxResponseBody = 1 << 20

// HTTPGateway talks to the remote auth service. Wire format is flat camelCase
// JSON; error bodies carry "error" or "message". All requests flow through the
// mediating Transport installed on the http.Client.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

var _ Gateway = (*HTTPGateway)(nil)

type GatewayOption func(*HTTPGateway)

// WithGatewayHTTPClient sets the http.Client used for all calls. The client's
// transport is expected to be (or wrap) a Transport.
func WithGatewayHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewHTTPGateway(cfg Config, opts ...GatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
		client:  &http.Client{Timeout: cfg.GetRequestTimeout()},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

func (g *HTTPGateway) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	out := &AuthResponse{}
	if err := g.do(ctx, http.MethodPost, routeLogin, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *HTTPGateway) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	out := &AuthResponse{}
	if err := g.do(ctx, http.MethodPost, routeRegister, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshToken exchanges the refresh token for a new pair. The call is exempt
// from bearer attachment (it must be valid without an access token) and from
// the unauthorized reaction (refresh failure handling belongs to the session).
func (g *HTTPGateway) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx = WithSkipAuth(WithSkipUnauthorizedReaction(ctx))

	body := map[string]string{"refreshToken": refreshToken}
	out := &TokenPair{}
	if err := g.do(ctx, http.MethodPost, routeRefresh, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout notifies the server. Best-effort by contract; a 401 here must not
// re-enter the invalidation path the caller is already on.
func (g *HTTPGateway) Logout(ctx context.Context) error {
	ctx = WithSkipUnauthorizedReaction(ctx)
	return g.do(ctx, http.MethodPost, routeLogout, struct{}{}, nil)
}

func (g *HTTPGateway) GetProfile(ctx context.Context) (*User, error) {
	out := &User{}
	if err := g.do(ctx, http.MethodGet, routeProfile, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *HTTPGateway) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	out := &User{}
	if err := g.do(ctx, http.MethodPut, routeUpdateProfile, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *HTTPGateway) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return g.do(ctx, http.MethodPost, routeChangePassword, req, nil)
}

func (g *HTTPGateway) RequestPasswordReset(ctx context.Context, email string) error {
	ctx = WithSkipAuth(ctx)
	body := map[string]string{"email": email}
	return g.do(ctx, http.MethodPost, routePasswordReset, body, nil)
}

func (g *HTTPGateway) ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error {
	ctx = WithSkipAuth(ctx)
	return g.do(ctx, http.MethodPost, routePasswordResetConfirm, req, nil)
}

func (g *HTTPGateway) DeleteAccount(ctx context.Context) error {
	return g.do(ctx, http.MethodDelete, routeDeleteAccount, nil, nil)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("%s %s transport error: %v", method, path, err)
		return NormalizeTransportError(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return NormalizeTransportError(err)
	}

	g.logger.Debug("%s %s -> %d (%d bytes)", method, path, res.StatusCode, len(data))

	if res.StatusCode >= http.StatusBadRequest {
		msg := errorBody{}
		_ = json.Unmarshal(data, &msg)
		message := msg.Error
		if message == "" {
			message = msg.Message
		}
		return NormalizeStatusError(res.StatusCode, message)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to decode response body").
				WithTextCode(textCodeUnknown)
		}
	}

	return nil
}
