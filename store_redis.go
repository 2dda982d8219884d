package authclient

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "authclient:credentials"

// RedisStore persists credential records in a redis hash, one hash per
// namespace, using the well-known storage keys as fields. Useful when the
// client runs in server-side contexts (workers, bots) that already have redis.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ CredentialStore = (*RedisStore)(nil)

type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix overrides the hash key prefix.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	store := &RedisStore{
		client:    client,
		keyPrefix: defaultRedisKeyPrefix,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

func (s *RedisStore) key(namespace string) string {
	return s.keyPrefix + ":" + namespace
}

func (s *RedisStore) Load(ctx context.Context, namespace string) (*CredentialRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(namespace)).Result()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load credential record").
			WithTextCode(textCodeStorage)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rec := &CredentialRecord{
		AccessToken:  fields[StorageKeyAccessToken],
		RefreshToken: fields[StorageKeyRefreshToken],
	}

	if raw := fields[StorageKeyTokenExpiresAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to parse stored expiry").
				WithTextCode(textCodeStorage)
		}
		rec.ExpiresAt = time.UnixMilli(ms)
	}

	if raw := fields[StorageKeyRememberMe]; raw != "" {
		rec.RememberMe = raw == "1" || raw == "true"
	}

	if raw := fields[StorageKeyUserInfo]; raw != "" {
		user := &User{}
		if err := json.Unmarshal([]byte(raw), user); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to decode stored user profile").
				WithTextCode(textCodeStorage)
		}
		rec.User = user
	}

	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, namespace string, rec *CredentialRecord) error {
	fields := map[string]any{
		StorageKeyAccessToken:    rec.AccessToken,
		StorageKeyRefreshToken:   rec.RefreshToken,
		StorageKeyTokenExpiresAt: strconv.FormatInt(rec.ExpiresAt.UnixMilli(), 10),
		StorageKeyRememberMe:     strconv.FormatBool(rec.RememberMe),
	}

	if rec.User != nil {
		data, err := json.Marshal(rec.User)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to serialize user profile").
				WithTextCode(textCodeStorage)
		}
		fields[StorageKeyUserInfo] = string(data)
	}

	if err := s.client.HSet(ctx, s.key(namespace), fields).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to save credential record").
			WithTextCode(textCodeStorage)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context, namespace string) error {
	if err := s.client.Del(ctx, s.key(namespace)).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to clear credential record").
			WithTextCode(textCodeStorage)
	}
	return nil
}
