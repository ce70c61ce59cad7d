package credstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkurbatov/pocketbank/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func newStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	return NewSQLiteStore(db, common.GenerateRandByteArray(32)), db
}

func TestStore_ReadAbsent(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Read(context.Background())
	require.ErrorIs(t, err, common.ErrNoCredential)
}

func TestStore_SaveReadRoundTrip(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "tok-1"))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", got)

	// on disk the token must not be stored in the clear
	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key='token'`).Scan(&raw))
	require.NotContains(t, string(raw), "tok-1")
}

func TestStore_SaveOverwrites(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "first"))
	require.NoError(t, s.Save(ctx, "second"))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", got)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Clear(ctx))

	require.NoError(t, s.Save(ctx, "tok"))
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Read(ctx)
	require.ErrorIs(t, err, common.ErrNoCredential)
}

func TestStore_TamperedRowIsStorageUnavailable(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "tok"))
	_, err := db.Exec(`UPDATE metadata SET value = X'00010203' WHERE key='token'`)
	require.NoError(t, err)

	_, err = s.Read(ctx)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestStore_ClosedDBIsStorageUnavailable(t *testing.T) {
	db := setupDB(t)
	s := NewSQLiteStore(db, common.GenerateRandByteArray(32))
	require.NoError(t, db.Close())

	ctx := context.Background()

	err := s.Save(ctx, "tok")
	require.ErrorIs(t, err, common.ErrStorageUnavailable)

	_, err = s.Read(ctx)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)

	err = s.Clear(ctx)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}
