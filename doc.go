// Package authclient manages the client side of an authentication session:
// it holds the current session state, persists credentials across restarts,
// keeps the access token fresh through a coordinated background schedule, and
// mediates every outgoing request through a single authorization policy.
//
// Session lifecycle:
//   - SessionManager owns the Guest/Loading/Authenticated state machine. Login,
//     Register, Logout, Refresh, FetchProfile, and RestoreFromPersistence drive
//     the transitions; every state change writes through to the configured
//     CredentialStore so the in-memory session and the persisted record never
//     diverge.
//   - RefreshScheduler runs one recurring timer while the session is
//     authenticated and funnels both the timer tick and externally triggered
//     checks (e.g. an application regaining foreground) through CheckNow.
//
// Request mediation:
//   - Transport is an http.RoundTripper that attaches the current access token
//     as a bearer credential and reacts to unauthorized responses by clearing
//     local credential state and signaling an InvalidationHandler. Both
//     behaviors are suppressible per request via context flags (WithSkipAuth,
//     WithSkipUnauthorizedReaction).
//
// Event sinks:
//   - EventSink is a light-weight emitter used by SessionManager to describe
//     login, logout, refresh, and invalidation outcomes. Sinks run best-effort
//     (errors are logged) so you can forward to telemetry or a UI bus without
//     blocking authentication.
package authclient
