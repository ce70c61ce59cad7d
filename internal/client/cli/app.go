// Package cli implements the interactive PocketBank client: a small
// REPL over the auth service and the transaction gateway.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dkurbatov/pocketbank/internal/client/api"
	"github.com/dkurbatov/pocketbank/internal/client/cache"
	"github.com/dkurbatov/pocketbank/internal/client/config"
	"github.com/dkurbatov/pocketbank/internal/client/credstore"
	"github.com/dkurbatov/pocketbank/internal/client/services"
	"github.com/dkurbatov/pocketbank/internal/common"
	"github.com/dkurbatov/pocketbank/internal/filex"
	"github.com/dkurbatov/pocketbank/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config *config.Config
	auth   services.AuthService
	txn    services.TransactionService
	cache  *cache.Cache
	log    logging.Logger
	reader *bufio.Reader
	db     *sql.DB
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	dataDir, err := filex.EnsureSubDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := credstore.Open(ctx, filepath.Join(dataDir, "pocketbank.db"))
	if err != nil {
		return nil, err
	}

	secret, err := filex.ReadOrCreateSecret(filepath.Join(dataDir, "device.secret"), func() []byte {
		return common.GenerateRandByteArray(32)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := credstore.NewSQLiteStore(db, secret)
	apiClient := api.NewHTTPClient(cfg.ServerBaseURL, store, cfg.RequestTimeout)
	accounts := cache.New(apiClient, log)

	return &App{
		config: cfg,
		auth:   services.NewAuthService(apiClient, store, accounts, log),
		txn:    services.NewTransactionService(apiClient, accounts, log),
		cache:  accounts,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		db:     db,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	go a.watchInvalidations(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.auth.LoggedIn(context.Background())
}

func (a *App) status() string {
	if me := a.cache.Self(); me.Account != nil {
		return me.Account.Username
	}
	if a.isLoggedIn() {
		return "logged in"
	}
	return "logged out"
}

// watchInvalidations tells the user when snapshots were invalidated by a
// settled mutation, so a subsequent balance/accounts command is expected
// to show new numbers.
func (a *App) watchInvalidations(ctx context.Context) {
	events := a.cache.Subscribe()
	for {
		select {
		case s := <-events:
			a.log.Debug(ctx, "snapshot invalidated", "snapshot", string(s))
		case <-ctx.Done():
			return
		}
	}
}
