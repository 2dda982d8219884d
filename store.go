package authclient

import (
	"context"
	"sync"
	"time"
)

// Well-known storage keys. Backends that expose per-key storage (redis hashes)
// use these verbatim so records written by older clients stay readable.
const (
	StorageKeyAccessToken    = "access_token"
	StorageKeyRefreshToken   = "refresh_token"
	StorageKeyUserInfo       = "user_info"
	StorageKeyTokenExpiresAt = "token_expires_at"
	StorageKeyRememberMe     = "remember_me"
)

// CredentialRecord is the persisted subset of the session: both tokens, the
// serialized profile, and the absolute expiry. It outlives the in-memory
// session across process restarts.
type CredentialRecord struct {
	AccessToken  string
	RefreshToken string
	User         *User
	ExpiresAt    time.Time
	RememberMe   bool
}

// Expired reports whether the access token lifetime has already elapsed.
func (r *CredentialRecord) Expired(now time.Time) bool {
	if r == nil {
		return true
	}
	return !r.ExpiresAt.After(now)
}

func (r *CredentialRecord) clone() *CredentialRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.User != nil {
		user := *r.User
		if r.User.Preferences != nil {
			prefs := *r.User.Preferences
			user.Preferences = &prefs
		}
		out.User = &user
	}
	return &out
}

// MemoryStore is an in-process CredentialStore. It satisfies the durability
// contract only for the lifetime of the process; it exists for tests and for
// embedding apps that handle persistence themselves.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*CredentialRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*CredentialRecord{}}
}

var _ CredentialStore = (*MemoryStore)(nil)

func (s *MemoryStore) Load(_ context.Context, namespace string) (*CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[namespace].clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, namespace string, rec *CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[namespace] = rec.clone()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, namespace)
	return nil
}
