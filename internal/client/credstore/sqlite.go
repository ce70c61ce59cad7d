package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/dkurbatov/pocketbank/internal/client/migrations"
	"github.com/dkurbatov/pocketbank/internal/common"
	"github.com/dkurbatov/pocketbank/internal/cryptox"
	"github.com/dkurbatov/pocketbank/internal/dbx"
)

// tokenKey is the single logical key the token is persisted under.
const tokenKey = "token"

// storageKeySalt is stable per application; the entropy lives in the
// per-install device secret.
var storageKeySalt = []byte("pocketbank.credstore.v1")

// SQLiteStore keeps the token AES-GCM-sealed in the metadata table of
// the client's local database. The mutex serializes access so every
// acquisition of the storage resource is scoped and released on all
// exit paths.
type SQLiteStore struct {
	mu  sync.Mutex
	db  dbx.DBTX
	key []byte
}

// NewSQLiteStore wraps an already-migrated database handle. The storage
// key is derived from the per-install device secret.
func NewSQLiteStore(db dbx.DBTX, deviceSecret []byte) *SQLiteStore {
	return &SQLiteStore{db: db, key: cryptox.DeriveStorageKey(deviceSecret, storageKeySalt)}
}

// RunMigrations applies the embedded goose migrations to the client DB.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the client database at dsn and
// returns a migrated handle.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open client db: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate client db: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := cryptox.Seal([]byte(token), s.key)
	if err != nil {
		return fmt.Errorf("%w: seal token: %w", common.ErrStorageUnavailable, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, tokenKey, sealed)
	if err != nil {
		return fmt.Errorf("%w: write token: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, tokenKey).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", common.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("%w: read token: %w", common.ErrStorageUnavailable, err)
	}

	token, err := cryptox.Open(sealed, s.key)
	if err != nil {
		return "", fmt.Errorf("%w: unseal token: %w", common.ErrStorageUnavailable, err)
	}
	return string(token), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, tokenKey)
	if err != nil {
		return fmt.Errorf("%w: clear token: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}
