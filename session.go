package authclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the session's lifecycle state. Exactly one is active at a
// time.
type SessionStatus string

const (
	// StatusGuest is the initial state and the terminal state after logout.
	StatusGuest SessionStatus = "guest"
	// StatusLoading is transient, entered during any async credential exchange.
	StatusLoading SessionStatus = "loading"
	// StatusAuthenticated holds until logout, refresh failure, or a detected
	// unauthorized response.
	StatusAuthenticated SessionStatus = "authenticated"
)

// SessionManager owns the client-side authentication session: status, cached
// profile, token pair, and expiry. Every state-changing transition writes
// through to the CredentialStore, and the refresh scheduler is armed exactly
// while the session is authenticated.
//
// The zero value is not usable; construct with New.
type SessionManager struct {
	cfg       Config
	gateway   Gateway
	store     CredentialStore
	scheduler *RefreshScheduler
	sink      EventSink
	logger    Logger
	now       func() time.Time
	namespace string

	onInvalidate InvalidationHandler

	mu             sync.Mutex
	status         SessionStatus
	user           *User
	accessToken    string
	refreshToken   string
	tokenExpiresAt time.Time
	rememberMe     bool
	lastError      string

	// epoch increments on every teardown; a refresh that settles against a
	// stale epoch has been superseded and must discard its result.
	epoch          uint64
	pendingRefresh *refreshCall
}

type refreshCall struct {
	done chan struct{}
	ok   bool
	err  error
}

var _ TokenSource = (*SessionManager)(nil)
var _ Refresher = (*SessionManager)(nil)
var _ SessionReader = (*SessionManager)(nil)

type Option func(*SessionManager)

func WithLogger(logger Logger) Option {
	return func(s *SessionManager) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventSink sets the sink session events are recorded to.
func WithEventSink(sink EventSink) Option {
	return func(s *SessionManager) {
		s.sink = normalizeEventSink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *SessionManager) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithGateway overrides the default HTTPGateway. The caller owns wiring the
// mediating transport in that case.
func WithGateway(gateway Gateway) Option {
	return func(s *SessionManager) {
		if gateway != nil {
			s.gateway = gateway
		}
	}
}

// WithInvalidationHandler sets the capability invoked after an unauthorized
// response clears the session, typically navigation to the login screen.
func WithInvalidationHandler(handler InvalidationHandler) Option {
	return func(s *SessionManager) {
		if handler != nil {
			s.onInvalidate = handler
		}
	}
}

// WithNamespace overrides the storage namespace, which defaults to the
// gateway base URL so two backends never clobber each other's credentials.
func WithNamespace(namespace string) Option {
	return func(s *SessionManager) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// New wires a SessionManager with its mediating transport, HTTP gateway, and
// refresh scheduler. The session starts in Guest; call RestoreFromPersistence
// once at process start to rehydrate a previous session.
func New(cfg Config, store CredentialStore, opts ...Option) *SessionManager {
	s := &SessionManager{
		cfg:       cfg,
		store:     store,
		status:    StatusGuest,
		logger:    defLogger{},
		sink:      noopEventSink{},
		now:       time.Now,
		namespace: cfg.GetBaseURL(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.gateway == nil {
		transport := NewTransport(s,
			WithTransportLogger(s.logger),
			WithTransportInvalidationHandler(s.invalidate),
		)
		s.gateway = NewHTTPGateway(cfg,
			WithGatewayHTTPClient(&http.Client{
				Timeout:   cfg.GetRequestTimeout(),
				Transport: transport,
			}),
			WithGatewayLogger(s.logger),
		)
	}

	s.scheduler = NewRefreshScheduler(s,
		WithSchedulerLogger(s.logger),
	)

	return s
}

// Close disarms the refresh scheduler. The session itself remains readable.
func (s *SessionManager) Close() {
	if s.scheduler != nil {
		s.scheduler.Disarm()
	}
}

// Gateway returns the remote boundary in use, mostly so embedding apps can
// issue pass-through calls that need no session bookkeeping.
func (s *SessionManager) Gateway() Gateway {
	return s.gateway
}

// Scheduler exposes the refresh scheduler so the embedding application can
// forward foreground/visibility events to CheckNow.
func (s *SessionManager) Scheduler() *RefreshScheduler {
	return s.scheduler
}

// Login exchanges credentials for a session. On success the session becomes
// Authenticated, the record is persisted, and the scheduler is armed. On
// failure the session resolves to Guest; the machine never exits in Loading.
func (s *SessionManager) Login(ctx context.Context, req LoginRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		rich := NormalizeValidationError(err)
		s.resolveFailure(ctx, EventLoginFailed, rich.Message)
		return nil, rich
	}

	s.beginLoading()

	resp, err := s.gateway.Login(ctx, req)
	if err != nil {
		rich := NormalizeError(err)
		s.logger.Error("login failed: %v", rich)
		s.resolveFailure(ctx, EventLoginFailed, rich.Message)
		return nil, rich
	}

	s.establish(ctx, resp, req.RememberMe, EventLoginSuccess)
	return resp.User, nil
}

// Register has the same contract as Login against the registration operation;
// a successful registration leaves the session Authenticated.
func (s *SessionManager) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		rich := NormalizeValidationError(err)
		s.resolveFailure(ctx, EventRegistrationFailed, rich.Message)
		return nil, rich
	}

	s.beginLoading()

	resp, err := s.gateway.Register(ctx, req)
	if err != nil {
		rich := NormalizeError(err)
		s.logger.Error("registration failed: %v", rich)
		s.resolveFailure(ctx, EventRegistrationFailed, rich.Message)
		return nil, rich
	}

	s.establish(ctx, resp, false, EventRegistrationSuccess)
	return resp.User, nil
}

// Logout is unconditionally successful from the caller's perspective: the
// server call is best-effort, local state and the persisted record are always
// cleared, and the scheduler is disarmed.
func (s *SessionManager) Logout(ctx context.Context) error {
	if err := s.gateway.Logout(ctx); err != nil {
		s.logger.Warn("logout call failed, clearing local state anyway: %v", err)
	}
	s.clearSession(ctx, s.newEvent(EventLogout, nil))
	return nil
}

// Refresh exchanges the refresh token for a fresh pair. At most one refresh is
// in flight: concurrent callers join the pending call and observe the same
// outcome. On failure the whole session is cleared and never retried
// automatically; the caller must re-authenticate.
func (s *SessionManager) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if call := s.pendingRefresh; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.ok, call.err
		case <-ctx.Done():
			return false, NormalizeTransportError(ctx.Err())
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	s.pendingRefresh = call
	token := s.refreshToken
	epoch := s.epoch
	s.mu.Unlock()

	if token == "" {
		if rec, err := s.store.Load(ctx, s.namespace); err == nil && rec != nil {
			token = rec.RefreshToken
		}
	}
	if token == "" {
		return s.settleRefresh(call, false, ErrNoRefreshToken)
	}

	pair, err := s.gateway.RefreshToken(ctx, token)

	s.mu.Lock()
	if s.epoch != epoch {
		// a logout (or unauthorized reaction) won the race; the session is
		// already torn down and this result must not be written anywhere
		s.mu.Unlock()
		s.logger.Info("refresh settled after session teardown, discarding result")
		return s.settleRefresh(call, false, ErrRefreshSuperseded)
	}

	if err != nil {
		s.mu.Unlock()
		rich := NormalizeError(err)
		s.logger.Warn("token refresh failed, clearing session: %v", rich)
		s.clearSessionWithError(ctx, rich.Message,
			s.newEvent(EventTokenExpired, map[string]any{"error": rich.Message}))
		return s.settleRefresh(call, false, rich)
	}

	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.tokenExpiresAt = s.now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	s.status = StatusAuthenticated
	s.lastError = ""
	s.persistLocked(ctx)
	expiresAt := s.tokenExpiresAt
	s.mu.Unlock()

	s.syncScheduler()
	s.emit(ctx, s.newEvent(EventTokenRefreshed, map[string]any{
		"expires_at": expiresAt.UnixMilli(),
	}))

	return s.settleRefresh(call, true, nil)
}

func (s *SessionManager) settleRefresh(call *refreshCall, ok bool, err error) (bool, error) {
	s.mu.Lock()
	if s.pendingRefresh == call {
		s.pendingRefresh = nil
	}
	s.mu.Unlock()

	call.ok, call.err = ok, err
	close(call.done)
	return ok, err
}

// FetchProfile re-reads the profile from the server and replaces the cached
// user. Failure propagates without touching session status; only explicit
// unauthorized responses tear the session down (via the mediator).
func (s *SessionManager) FetchProfile(ctx context.Context) (*User, error) {
	user, err := s.gateway.GetProfile(ctx)
	if err != nil {
		rich := NormalizeError(err)
		s.setLastError(rich.Message)
		return nil, rich
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// UpdateProfile is a pass-through mutation that refreshes the cached user on
// success. The phone number, if present, is validated and normalized to E.164
// before hitting the wire.
func (s *SessionManager) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, NormalizeValidationError(err)
	}

	user, err := s.gateway.UpdateProfile(ctx, req.Normalize())
	if err != nil {
		rich := NormalizeError(err)
		s.setLastError(rich.Message)
		return nil, rich
	}

	s.cacheUser(ctx, user)
	return user, nil
}

func (s *SessionManager) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return NormalizeValidationError(err)
	}
	if err := s.gateway.ChangePassword(ctx, req); err != nil {
		rich := NormalizeError(err)
		s.setLastError(rich.Message)
		return rich
	}
	s.setLastError("")
	return nil
}

func (s *SessionManager) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.gateway.RequestPasswordReset(ctx, email); err != nil {
		rich := NormalizeError(err)
		s.setLastError(rich.Message)
		return rich
	}
	s.setLastError("")
	return nil
}

func (s *SessionManager) ConfirmPasswordReset(ctx context.Context, req ConfirmPasswordResetRequest) error {
	if err := req.Validate(); err != nil {
		return NormalizeValidationError(err)
	}
	if err := s.gateway.ConfirmPasswordReset(ctx, req); err != nil {
		rich := NormalizeError(err)
		s.setLastError(rich.Message)
		return rich
	}
	s.setLastError("")
	return nil
}

// DeleteAccount removes the account server-side and clears the local session.
func (s *SessionManager) DeleteAccount(ctx context.Context) error {
	if err := s.gateway.DeleteAccount(ctx); err != nil {
		rich := NormalizeError(err)
		s.setLastError(rich.Message)
		return rich
	}
	s.clearSession(ctx, s.newEvent(EventLogout, map[string]any{"reason": "account_deleted"}))
	return nil
}

// RestoreFromPersistence rehydrates the session from the persisted record,
// refreshing immediately when the token is inside the refresh threshold, then
// validates the session with a profile read. Stale or revoked sessions are
// treated as expired and cleared. Invoke once at process start.
func (s *SessionManager) RestoreFromPersistence(ctx context.Context) error {
	s.setStatus(StatusLoading)

	rec, err := s.store.Load(ctx, s.namespace)
	if err != nil {
		s.setStatus(StatusGuest)
		return NormalizeError(err)
	}

	if rec == nil || rec.AccessToken == "" || rec.RefreshToken == "" {
		s.setStatus(StatusGuest)
		return nil
	}

	if rec.Expired(s.now()) {
		if err := s.store.Clear(ctx, s.namespace); err != nil {
			s.logger.Warn("unable to clear expired credentials: %v", err)
		}
		s.setStatus(StatusGuest)
		return nil
	}

	s.mu.Lock()
	s.user = rec.User
	s.accessToken = rec.AccessToken
	s.refreshToken = rec.RefreshToken
	s.tokenExpiresAt = rec.ExpiresAt
	s.rememberMe = rec.RememberMe
	s.status = StatusAuthenticated
	s.lastError = ""
	s.mu.Unlock()
	s.syncScheduler()

	if s.IsTokenExpiringSoon() {
		if ok, err := s.Refresh(ctx); !ok {
			// refresh failure already resolved the session to Guest
			s.logger.Info("restored session could not refresh: %v", err)
			return nil
		}
	}

	if _, err := s.FetchProfile(ctx); err != nil {
		if s.IsAuthenticated() {
			s.logger.Warn("restored session rejected by server, clearing: %v", err)
			s.clearSession(ctx, s.newEvent(EventLogout, map[string]any{
				"reason": "restore_validation_failed",
			}))
		}
		return nil
	}

	return nil
}

// ---- derived state ----

func (s *SessionManager) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SessionManager) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusAuthenticated && s.accessToken != ""
}

func (s *SessionManager) IsGuest() bool {
	return s.Status() == StatusGuest
}

func (s *SessionManager) IsLoading() bool {
	return s.Status() == StatusLoading
}

// IsRefreshing reports whether a refresh call is outstanding.
func (s *SessionManager) IsRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRefresh != nil
}

// AccessToken implements TokenSource for the mediating transport.
func (s *SessionManager) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshTokenValue returns the current refresh token, empty when guest.
func (s *SessionManager) RefreshTokenValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// CurrentUser returns the cached profile or nil.
func (s *SessionManager) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// UserDisplayName returns "First Last" or the email, empty for guests.
func (s *SessionManager) UserDisplayName() string {
	return s.CurrentUser().DisplayName()
}

// TokenExpiresAt returns the absolute expiry, zero when no token is held.
func (s *SessionManager) TokenExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenExpiresAt
}

// IsTokenExpiringSoon reports whether the token is inside the refresh
// threshold.
func (s *SessionManager) IsTokenExpiringSoon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiringSoonLocked()
}

func (s *SessionManager) expiringSoonLocked() bool {
	if s.tokenExpiresAt.IsZero() {
		return false
	}
	return s.tokenExpiresAt.Sub(s.now()) <= s.cfg.GetRefreshThreshold()
}

// TokenRemainingTime returns how long the access token stays valid, zero when
// expired or absent.
func (s *SessionManager) TokenRemainingTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenExpiresAt.IsZero() {
		return 0
	}
	remaining := s.tokenExpiresAt.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldRefresh implements Refresher: authenticated, inside the threshold,
// and no refresh already in flight.
func (s *SessionManager) ShouldRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusAuthenticated &&
		s.pendingRefresh == nil &&
		s.expiringSoonLocked()
}

// LastError returns the message of the most recent failed operation, cleared
// on any successful operation or DismissError.
func (s *SessionManager) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *SessionManager) DismissError() {
	s.setLastError("")
}

// ---- internals ----

// beginLoading enters the transient Loading state. Tokens are dropped from
// memory so the token/status invariant holds at every observable point, and
// the epoch moves on so an in-flight refresh cannot write into the new
// exchange when it settles.
func (s *SessionManager) beginLoading() {
	s.mu.Lock()
	s.epoch++
	s.status = StatusLoading
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.tokenExpiresAt = time.Time{}
	s.lastError = ""
	s.mu.Unlock()
	s.syncScheduler()
}

func (s *SessionManager) setStatus(status SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.syncScheduler()
}

func (s *SessionManager) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// establish atomically installs a successful credential exchange: session
// fields, persisted record, scheduler, success event.
func (s *SessionManager) establish(ctx context.Context, resp *AuthResponse, rememberMe bool, event AuthEventType) {
	s.mu.Lock()
	s.user = resp.User
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.tokenExpiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	s.rememberMe = rememberMe
	s.status = StatusAuthenticated
	s.lastError = ""
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.syncScheduler()

	payload := map[string]any{}
	if resp.User != nil {
		payload["user_id"] = resp.User.ID
		payload["email"] = resp.User.Email
	}
	s.emit(ctx, s.newEvent(event, payload))
}

// resolveFailure exits a failed login/register attempt: the machine resolves
// to Guest, the persisted record is cleared in lockstep with memory, the
// failure is recorded, and the event is emitted.
func (s *SessionManager) resolveFailure(ctx context.Context, event AuthEventType, msg string) {
	s.mu.Lock()
	s.epoch++
	s.status = StatusGuest
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.tokenExpiresAt = time.Time{}
	s.lastError = msg
	s.mu.Unlock()

	if err := s.store.Clear(ctx, s.namespace); err != nil {
		s.logger.Warn("unable to clear persisted credentials: %v", err)
	}

	s.syncScheduler()
	s.emit(ctx, s.newEvent(event, map[string]any{"error": msg}))
}

func (s *SessionManager) clearSession(ctx context.Context, events ...AuthEvent) {
	s.clearSessionWithError(ctx, "", events...)
}

func (s *SessionManager) clearSessionWithError(ctx context.Context, msg string, events ...AuthEvent) {
	s.mu.Lock()
	s.epoch++
	s.status = StatusGuest
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.tokenExpiresAt = time.Time{}
	s.rememberMe = false
	s.lastError = msg
	s.mu.Unlock()

	if err := s.store.Clear(ctx, s.namespace); err != nil {
		s.logger.Warn("unable to clear persisted credentials: %v", err)
	}

	s.syncScheduler()
	s.emit(ctx, events...)
}

// invalidate is the unauthorized reaction: synchronously clear memory and the
// persisted record, emit session_invalidated exactly once per teardown, and
// signal the navigation capability. Re-entrant calls on an already-guest
// session only sweep stray persisted state.
func (s *SessionManager) invalidate(ctx context.Context, reason error) {
	s.mu.Lock()
	alreadyGuest := s.status == StatusGuest && s.accessToken == "" && s.refreshToken == ""
	s.mu.Unlock()

	if alreadyGuest {
		if err := s.store.Clear(ctx, s.namespace); err != nil {
			s.logger.Warn("unable to clear persisted credentials: %v", err)
		}
		return
	}

	s.clearSession(ctx, s.newEvent(EventSessionInvalidated, map[string]any{
		"reason": reason.Error(),
	}))

	if s.onInvalidate != nil {
		s.onInvalidate(ctx, reason)
	}
}

// persistLocked writes the current session fields through to the store.
// Caller holds s.mu. Storage failures are logged, not propagated: the
// credential exchange already succeeded and the session must stay usable.
func (s *SessionManager) persistLocked(ctx context.Context) {
	rec := &CredentialRecord{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		User:         s.user,
		ExpiresAt:    s.tokenExpiresAt,
		RememberMe:   s.rememberMe,
	}
	if err := s.store.Save(ctx, s.namespace, rec); err != nil {
		s.logger.Error("unable to persist credentials: %v", err)
	}
}

func (s *SessionManager) cacheUser(ctx context.Context, user *User) {
	s.mu.Lock()
	s.user = user
	s.lastError = ""
	if s.status == StatusAuthenticated {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()
}

// syncScheduler reacts to the current status: armed exactly when
// authenticated. Arm/Disarm are idempotent so every transition path can call
// this unconditionally.
func (s *SessionManager) syncScheduler() {
	if s.scheduler == nil {
		return
	}
	if s.IsAuthenticated() {
		s.scheduler.Arm(s.cfg.GetRefreshInterval())
	} else {
		s.scheduler.Disarm()
	}
}

func (s *SessionManager) newEvent(eventType AuthEventType, payload map[string]any) AuthEvent {
	return AuthEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: s.now(),
		Payload:    payload,
	}
}

func (s *SessionManager) emit(ctx context.Context, events ...AuthEvent) {
	sink := normalizeEventSink(s.sink)
	for _, event := range events {
		if err := sink.Record(ctx, event); err != nil {
			s.logger.Warn("event sink record error: %v", err)
		}
	}
}
