package authclient

import (
	"net/http"

	"github.com/goliatone/go-print"
)

// Transport mediates every outbound request with two cross-cutting behaviors:
// bearer attachment and the unauthorized reaction. Each is independently
// suppressible per request (WithSkipAuth, WithSkipUnauthorizedReaction).
//
// The reaction does not refresh-and-retry the failed request; an unauthorized
// response means the local session is unrecoverable and proactive refresh is
// the scheduler's job.
type Transport struct {
	base         http.RoundTripper
	tokens       TokenSource
	onInvalidate InvalidationHandler
	logger       Logger
}

var _ http.RoundTripper = (*Transport)(nil)

type TransportOption func(*Transport)

// WithTransportBase sets the underlying RoundTripper (default
// http.DefaultTransport).
func WithTransportBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

func WithTransportLogger(logger Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTransportInvalidationHandler sets the handler signaled when an
// unauthorized response forces local session teardown.
func WithTransportInvalidationHandler(handler InvalidationHandler) TransportOption {
	return func(t *Transport) {
		if handler != nil {
			t.onInvalidate = handler
		}
	}
}

func NewTransport(tokens TokenSource, opts ...TransportOption) *Transport {
	t := &Transport{
		base:   http.DefaultTransport,
		tokens: tokens,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out := req
	if !SkipAuth(ctx) && t.tokens != nil {
		if token := t.tokens.AccessToken(); token != "" {
			out = req.Clone(ctx)
			out.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized && !SkipUnauthorizedReaction(ctx) {
		reason := NormalizeStatusError(res.StatusCode, "")
		t.logger.Info("unauthorized response on %s %s, invalidating local session", req.Method, req.URL.Path)
		t.logger.Debug("unauthorized details: %s", print.MaybePrettyJSON(reason.Metadata))
		if t.onInvalidate != nil {
			t.onInvalidate(ctx, reason)
		}
	}

	return res, nil
}
