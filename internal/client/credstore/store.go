// Package credstore implements the credential store: durable,
// encrypted-at-rest storage of the current session token. It is the
// single source of truth for "is a user logged in".
package credstore

import "context"

// Store holds at most one bearer token per installation.
//
// Contract:
//   - Save overwrites any prior token.
//   - Read returns common.ErrNoCredential when no token is stored.
//   - Clear is idempotent; clearing an absent token is not an error.
//
// Any storage-layer failure is reported wrapped in
// common.ErrStorageUnavailable and must not be discarded by callers.
type Store interface {
	Save(ctx context.Context, token string) error
	Read(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}
