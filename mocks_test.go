package authclient_test

import (
	"context"
	"sync"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/mock"
)

// MockGateway implements authclient.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context, req authclient.LoginRequest) (*authclient.AuthResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*authclient.AuthResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) Register(ctx context.Context, req authclient.RegisterRequest) (*authclient.AuthResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*authclient.AuthResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) RefreshToken(ctx context.Context, refreshToken string) (*authclient.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if pair := args.Get(0); pair != nil {
		return pair.(*authclient.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) GetProfile(ctx context.Context) (*authclient.User, error) {
	args := m.Called(ctx)
	if user := args.Get(0); user != nil {
		return user.(*authclient.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) UpdateProfile(ctx context.Context, req authclient.UpdateProfileRequest) (*authclient.User, error) {
	args := m.Called(ctx, req)
	if user := args.Get(0); user != nil {
		return user.(*authclient.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) ChangePassword(ctx context.Context, req authclient.ChangePasswordRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockGateway) ConfirmPasswordReset(ctx context.Context, req authclient.ConfirmPasswordResetRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) DeleteAccount(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRefresher implements authclient.Refresher
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefresher) ShouldRefresh() bool {
	args := m.Called()
	return args.Bool(0)
}

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []authclient.AuthEvent
}

func (s *recordingSink) Record(_ context.Context, event authclient.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []authclient.AuthEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authclient.AuthEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func (s *recordingSink) has(eventType authclient.AuthEventType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func (s *recordingSink) count(eventType authclient.AuthEventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// staticTokens is a fixed TokenSource for transport tests.
type staticTokens struct {
	token string
}

func (s staticTokens) AccessToken() string {
	return s.token
}
