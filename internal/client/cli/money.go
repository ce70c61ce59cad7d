package cli

import (
	"context"
	"os"

	"github.com/shopspring/decimal"

	"github.com/dkurbatov/pocketbank/internal/client/services"
)

func (a *App) promptAmount(prompt string) (decimal.Decimal, error) {
	raw, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return decimal.Zero, err
	}
	return services.ParseAmount(raw)
}

func (a *App) Deposit(ctx context.Context) error {
	amount, err := a.promptAmount("Amount to deposit")
	if err != nil {
		printlnFn(describeError(err))
		return err
	}

	if err := a.txn.Deposit(ctx, amount); err != nil {
		printlnFn(describeError(err))
		a.handleSessionErr(ctx, err)
		return err
	}

	printlnFn("Deposited", amount.StringFixed(2))
	return nil
}

func (a *App) Withdraw(ctx context.Context) error {
	amount, err := a.promptAmount("Amount to withdraw")
	if err != nil {
		printlnFn(describeError(err))
		return err
	}

	if err := a.txn.Withdraw(ctx, amount); err != nil {
		printlnFn(describeError(err))
		a.handleSessionErr(ctx, err)
		return err
	}

	printlnFn("Withdrew", amount.StringFixed(2))
	return nil
}

func (a *App) Transfer(ctx context.Context) error {
	amount, err := a.promptAmount("Amount to transfer")
	if err != nil {
		printlnFn(describeError(err))
		return err
	}

	recipient, err := getSimpleText(a.reader, "Recipient account id", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.txn.Transfer(ctx, amount, recipient); err != nil {
		printlnFn(describeError(err))
		a.handleSessionErr(ctx, err)
		return err
	}

	printlnFn("Transferred", amount.StringFixed(2), "to", recipient)
	return nil
}
