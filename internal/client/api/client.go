// Package api implements the session client: it wraps outbound requests
// to the banking backend, attaches the stored bearer credential, and
// classifies failures into the shared error taxonomy.
package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dkurbatov/pocketbank/internal/client/models"
)

// Client is the remote surface of the banking backend.
//
// Privileged operations (everything except Login and Register) read the
// credential store first and fail fast with common.ErrUnauthenticated,
// without network I/O, when no token is stored. The client never
// retries; retry is a caller concern.
type Client interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password, imagePath string) (string, error)
	GetMe(ctx context.Context) (*models.Account, error)
	ListUsers(ctx context.Context) ([]*models.Account, error)
	Deposit(ctx context.Context, amount decimal.Decimal) error
	Withdraw(ctx context.Context, amount decimal.Decimal) error
	Transfer(ctx context.Context, amount decimal.Decimal, toUserID string) error
}
