package cli

import (
	"context"
	"fmt"

	"github.com/dkurbatov/pocketbank/internal/client/cache"
)

func stateSuffix(s cache.State) string {
	if s == cache.Fresh {
		return ""
	}
	return fmt.Sprintf(" (%s)", s)
}

// Balance shows the own-account snapshot. A stale or refreshing value is
// labeled as such rather than presented as confirmed.
func (a *App) Balance(ctx context.Context) error {
	view, err := a.auth.Me(ctx)
	if err != nil {
		printlnFn(describeError(err))
		a.handleSessionErr(ctx, err)
		return err
	}
	if view.Account == nil {
		printlnFn("Account data not loaded yet, try again.")
		return nil
	}

	printlnFn(fmt.Sprintf("%s: %s%s", view.Account.Username, view.Account.Balance.StringFixed(2), stateSuffix(view.State)))
	return nil
}

// Accounts lists every known account and its balance.
func (a *App) Accounts(ctx context.Context) error {
	view, err := a.auth.Accounts(ctx)
	if err != nil {
		printlnFn(describeError(err))
		a.handleSessionErr(ctx, err)
		return err
	}

	printlnFn(fmt.Sprintf("%d accounts%s", len(view.Accounts), stateSuffix(view.State)))
	for _, acc := range view.Accounts {
		printlnFn(fmt.Sprintf("  %-12s %10s  [%s]", acc.Username, acc.Balance.StringFixed(2), acc.ID))
	}
	return nil
}
