package authclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// StoredCredential is the credential record row. One row per namespace; the
// primary key is a deterministic UUID derived from the namespace so writes are
// natural upserts.
type StoredCredential struct {
	bun.BaseModel  `bun:"table:auth_credentials,alias:cred"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Namespace      string     `bun:"namespace,notnull,unique" json:"namespace,omitempty"`
	AccessToken    string     `bun:"access_token" json:"access_token,omitempty"`
	RefreshToken   string     `bun:"refresh_token" json:"refresh_token,omitempty"`
	UserInfo       []byte     `bun:"user_info" json:"user_info,omitempty"`
	TokenExpiresAt int64      `bun:"token_expires_at" json:"token_expires_at,omitempty"`
	RememberMe     bool       `bun:"remember_me" json:"remember_me,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunStore persists credential records through bun. The default driver is the
// sqlite shim, which keeps the client dependency-light on desktop and CI.
type BunStore struct {
	db     *bun.DB
	repo   repository.Repository[*StoredCredential]
	logger Logger
}

var _ CredentialStore = (*BunStore)(nil)

type BunStoreOption func(*BunStore)

func WithBunStoreLogger(logger Logger) BunStoreOption {
	return func(s *BunStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewBunStore(db *bun.DB, opts ...BunStoreOption) *BunStore {
	repo := repository.NewRepository[*StoredCredential](db, repository.ModelHandlers[*StoredCredential]{
		NewRecord: func() *StoredCredential { return &StoredCredential{} },
		GetID: func(c *StoredCredential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *StoredCredential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		// upserts resolve conflicts through the identifier column
		GetIdentifier: func() string { return "namespace" },
	})

	store := &BunStore{
		db:     db,
		repo:   repo,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

// OpenSQLiteStore opens (or creates) a sqlite-backed store at path and ensures
// the schema exists. Use ":memory:" for throwaway stores.
func OpenSQLiteStore(ctx context.Context, path string, opts ...BunStoreOption) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to open credential database").
			WithTextCode(textCodeStorage)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	store := NewBunStore(db, opts...)
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Init creates the credentials table if needed.
func (s *BunStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*StoredCredential)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create credentials table").
			WithTextCode(textCodeStorage)
	}
	return nil
}

// DB exposes the underlying bun handle, mostly so embedding apps can close it.
func (s *BunStore) DB() *bun.DB {
	return s.db
}

func (s *BunStore) Load(ctx context.Context, namespace string) (*CredentialRecord, error) {
	id, err := credentialID(namespace)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load credential record").
			WithTextCode(textCodeStorage)
	}

	return rowToRecord(row)
}

func (s *BunStore) Save(ctx context.Context, namespace string, rec *CredentialRecord) error {
	id, err := credentialID(namespace)
	if err != nil {
		return err
	}

	row := &StoredCredential{
		ID:             id,
		Namespace:      namespace,
		AccessToken:    rec.AccessToken,
		RefreshToken:   rec.RefreshToken,
		TokenExpiresAt: rec.ExpiresAt.UnixMilli(),
		RememberMe:     rec.RememberMe,
	}

	if rec.User != nil {
		data, err := json.Marshal(rec.User)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to serialize user profile").
				WithTextCode(textCodeStorage)
		}
		row.UserInfo = data
	}

	if _, err := s.repo.Upsert(ctx, row); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to save credential record").
			WithTextCode(textCodeStorage)
	}

	return nil
}

func (s *BunStore) Clear(ctx context.Context, namespace string) error {
	id, err := credentialID(namespace)
	if err != nil {
		return err
	}

	if _, err := s.db.NewDelete().
		Model((*StoredCredential)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to clear credential record").
			WithTextCode(textCodeStorage)
	}

	return nil
}

func rowToRecord(row *StoredCredential) (*CredentialRecord, error) {
	if row == nil {
		return nil, nil
	}

	rec := &CredentialRecord{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    time.UnixMilli(row.TokenExpiresAt),
		RememberMe:   row.RememberMe,
	}

	if len(row.UserInfo) > 0 {
		user := &User{}
		if err := json.Unmarshal(row.UserInfo, user); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to decode stored user profile").
				WithTextCode(textCodeStorage)
		}
		rec.User = user
	}

	return rec, nil
}

// credentialID derives the stable row ID for a namespace. hashid keeps the ID
// deterministic so a reopened store finds the same record.
func credentialID(namespace string) (uuid.UUID, error) {
	id, err := hashid.NewUUID(namespace)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to derive credential id").
			WithTextCode(textCodeStorage)
	}
	return id, nil
}
