package services

import (
	"context"
	"fmt"

	"github.com/dkurbatov/pocketbank/internal/client/api"
	"github.com/dkurbatov/pocketbank/internal/client/cache"
	"github.com/dkurbatov/pocketbank/internal/client/credstore"
	"github.com/dkurbatov/pocketbank/internal/logging"
)

// AuthService owns the session lifecycle: it is the only writer of the
// credential store.
//
// Contract:
//   - Login / Register: authenticate, persist the token, prime the cache.
//   - Logout: clear the token and drop cached snapshots. Idempotent.
//   - Me / Accounts: read the snapshots, refreshing stale ones first.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Register(ctx context.Context, username string, password []byte, imagePath string) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (cache.AccountView, error)
	Accounts(ctx context.Context) (cache.RosterView, error)
	LoggedIn(ctx context.Context) bool
}

type authService struct {
	client api.Client
	store  credstore.Store
	cache  *cache.Cache
	log    logging.Logger
}

func NewAuthService(client api.Client, store credstore.Store, c *cache.Cache, log logging.Logger) AuthService {
	return &authService{client: client, store: store, cache: c, log: log}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	token, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := a.store.Save(ctx, token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	a.cache.Reset()
	if err := a.cache.Refresh(ctx); err != nil {
		// Session is established; snapshots stay stale and the next
		// read retries.
		a.log.Warn(ctx, "initial snapshot refresh failed", "err", err)
	}
	return nil
}

// Register creates the account and, because the server answers with a
// token, establishes the session in the same step.
func (a *authService) Register(ctx context.Context, username string, password []byte, imagePath string) error {
	token, err := a.client.Register(ctx, username, string(password), imagePath)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if err := a.store.Save(ctx, token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	a.cache.Reset()
	if err := a.cache.Refresh(ctx); err != nil {
		a.log.Warn(ctx, "initial snapshot refresh failed", "err", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.cache.Reset()
	return nil
}

// Me returns the self snapshot, attempting a refresh first when it is
// not fresh. A failed refresh still returns the last known view so the
// caller can render it with its staleness flag.
func (a *authService) Me(ctx context.Context) (cache.AccountView, error) {
	if v := a.cache.Self(); v.State == cache.Fresh {
		return v, nil
	}
	err := a.cache.Refresh(ctx)
	v := a.cache.Self()
	if v.Account == nil && err != nil {
		return v, err
	}
	return v, nil
}

func (a *authService) Accounts(ctx context.Context) (cache.RosterView, error) {
	if v := a.cache.Roster(); v.State == cache.Fresh {
		return v, nil
	}
	err := a.cache.Refresh(ctx)
	v := a.cache.Roster()
	if v.Accounts == nil && err != nil {
		return v, err
	}
	return v, nil
}

// LoggedIn reports whether a credential is currently stored.
func (a *authService) LoggedIn(ctx context.Context) bool {
	_, err := a.store.Read(ctx)
	return err == nil
}
