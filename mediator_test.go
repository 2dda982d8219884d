package authclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestTransport_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: authclient.NewTransport(staticTokens{token: "token-1"})}

	res, err := client.Get(server.URL + "/resource")
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, "Bearer token-1", gotAuth)
}

func TestTransport_EmptyTokenLeavesRequestUntouched(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: authclient.NewTransport(staticTokens{})}

	res, err := client.Get(server.URL + "/resource")
	require.NoError(t, err)
	res.Body.Close()

	assert.Empty(t, gotAuth)
}

func TestTransport_SkipAuthSuppressesBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: authclient.NewTransport(staticTokens{token: "token-1"})}

	req, err := http.NewRequestWithContext(
		authclient.WithSkipAuth(context.Background()),
		http.MethodGet, server.URL+"/auth/refresh", nil)
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Empty(t, gotAuth)
}

func TestTransport_UnauthorizedTriggersInvalidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var calls atomic.Int32
	var reason error
	transport := authclient.NewTransport(staticTokens{token: "token-1"},
		authclient.WithTransportInvalidationHandler(func(_ context.Context, err error) {
			calls.Add(1)
			reason = err
		}),
	)
	client := &http.Client{Transport: transport}

	res, err := client.Get(server.URL + "/resource")
	require.NoError(t, err)
	res.Body.Close()

	// the response is passed through untouched, the handler is signaled
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	require.Error(t, reason)
	assert.True(t, authclient.IsUnauthorizedError(reason))
}

func TestTransport_SkipUnauthorizedReaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var calls atomic.Int32
	transport := authclient.NewTransport(staticTokens{token: "token-1"},
		authclient.WithTransportInvalidationHandler(func(context.Context, error) {
			calls.Add(1)
		}),
	)
	client := &http.Client{Transport: transport}

	req, err := http.NewRequestWithContext(
		authclient.WithSkipUnauthorizedReaction(context.Background()),
		http.MethodPost, server.URL+"/auth/logout", nil)
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, int32(0), calls.Load())
}

// End-to-end: a 401 on a mediated call clears the session, emits the
// invalidation event exactly once, and signals the handler.
func TestSession_UnauthorizedResponseInvalidatesSession(t *testing.T) {
	var mode atomic.Value
	mode.Store("ok")

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"user": {"id": "usr-1", "email": "ada@example.com", "firstName": "Ada", "lastName": "Lovelace"},
			"accessToken": "access-1",
			"refreshToken": "refresh-1",
			"expiresIn": 3600
		}`))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if mode.Load() == "revoked" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "token revoked"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "usr-1", "email": "ada@example.com"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := authclient.NewMemoryStore()
	sink := &recordingSink{}
	var invalidations atomic.Int32

	session := authclient.New(authclient.DefaultConfig(server.URL), store,
		authclient.WithEventSink(sink),
		authclient.WithInvalidationHandler(func(context.Context, error) {
			invalidations.Add(1)
		}),
	)
	defer session.Close()

	ctx := context.Background()
	_, err := session.Login(ctx, authclient.LoginRequest{Email: "ada@example.com", Password: "secret-password"})
	require.NoError(t, err)
	require.True(t, session.IsAuthenticated())

	mode.Store("revoked")

	_, err = session.FetchProfile(ctx)
	require.Error(t, err)
	assert.True(t, authclient.IsUnauthorizedError(err))

	assert.Equal(t, authclient.StatusGuest, session.Status())
	assert.Empty(t, session.AccessToken())
	rec, err := store.Load(ctx, server.URL)
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.Equal(t, int32(1), invalidations.Load())
	assert.Equal(t, 1, sink.count(authclient.EventSessionInvalidated))

	// a second rejected call must not re-fire the reaction
	_, err = session.FetchProfile(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), invalidations.Load())
	assert.Equal(t, 1, sink.count(authclient.EventSessionInvalidated))
}
