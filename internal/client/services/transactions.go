// Package services contains the application services of the PocketBank
// client: authentication/session lifecycle and the transaction gateway.
package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/dkurbatov/pocketbank/internal/client/api"
	"github.com/dkurbatov/pocketbank/internal/client/cache"
	"github.com/dkurbatov/pocketbank/internal/client/models"
	"github.com/dkurbatov/pocketbank/internal/common"
	"github.com/dkurbatov/pocketbank/internal/logging"
)

// TransactionService is the transaction gateway: it pre-validates
// money-movement operations against the cached balance and submits each
// one at most once.
//
// Pre-validation is immediate feedback only, not the enforcement
// boundary; the server re-validates independently and a server-side
// rejection surfaces as an ordinary *api.RequestError.
type TransactionService interface {
	Deposit(ctx context.Context, amount decimal.Decimal) error
	Withdraw(ctx context.Context, amount decimal.Decimal) error
	Transfer(ctx context.Context, amount decimal.Decimal, toUserID string) error
}

type transactionService struct {
	client api.Client
	cache  *cache.Cache
	log    logging.Logger

	// inFlight is the single-flight slot: at most one outstanding
	// mutation per session.
	inFlight atomic.Bool

	// refresh is how a successful mutation issues the snapshot refresh.
	// Overridable in tests.
	refresh func(ctx context.Context)
}

func NewTransactionService(client api.Client, c *cache.Cache, log logging.Logger) TransactionService {
	s := &transactionService{client: client, cache: c, log: log}
	s.refresh = func(ctx context.Context) {
		go func() {
			if err := c.Refresh(ctx); err != nil {
				log.Warn(ctx, "post-mutation refresh failed", "err", err)
			}
		}()
	}
	return s
}

// ParseAmount converts user input into a positive decimal amount.
// Anything non-numeric or not strictly positive fails with
// common.ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", common.ErrInvalidAmount, s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", common.ErrInvalidAmount, d)
	}
	return d, nil
}

func (s *transactionService) Deposit(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidAmount, amount)
	}

	return s.submit(ctx, "deposit", func(ctx context.Context) error {
		return s.client.Deposit(ctx, amount)
	})
}

func (s *transactionService) Withdraw(ctx context.Context, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidAmount, amount)
	}
	if err := s.checkBalance(ctx, amount); err != nil {
		return err
	}

	return s.submit(ctx, "withdraw", func(ctx context.Context) error {
		return s.client.Withdraw(ctx, amount)
	})
}

func (s *transactionService) Transfer(ctx context.Context, amount decimal.Decimal, toUserID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", common.ErrInvalidAmount, amount)
	}

	self, err := s.selfSnapshot(ctx)
	if err != nil {
		return err
	}
	if self.ID == toUserID {
		return common.ErrSelfTransferRejected
	}
	if _, ok := s.cache.Lookup(toUserID); !ok {
		return fmt.Errorf("%w: %s", common.ErrUnknownRecipient, toUserID)
	}
	if amount.GreaterThan(self.Balance) {
		return fmt.Errorf("%w: %s > %s", common.ErrInsufficientFunds, amount, self.Balance)
	}

	return s.submit(ctx, "transfer", func(ctx context.Context) error {
		return s.client.Transfer(ctx, amount, toUserID)
	})
}

// checkBalance validates amount against the last refreshed self
// snapshot at the moment of submission. The single-flight rule keeps
// this free of read-then-write races.
func (s *transactionService) checkBalance(ctx context.Context, amount decimal.Decimal) error {
	self, err := s.selfSnapshot(ctx)
	if err != nil {
		return err
	}
	if amount.GreaterThan(self.Balance) {
		return fmt.Errorf("%w: %s > %s", common.ErrInsufficientFunds, amount, self.Balance)
	}
	return nil
}

// selfSnapshot returns the self account, fetching it first if it has
// never been loaded in this session.
func (s *transactionService) selfSnapshot(ctx context.Context) (*models.Account, error) {
	view := s.cache.Self()
	if view.Account == nil {
		if err := s.cache.Refresh(ctx); err != nil {
			return nil, err
		}
		view = s.cache.Self()
		if view.Account == nil {
			return nil, common.ErrUnreachable
		}
	}
	return view.Account, nil
}

// submit runs one mutation through the single-flight slot.
//
// Settlement is detached from the caller's cancellation: once sent, a
// financial operation is not cancelable, and the eventual answer is
// always processed so the cache stays correct. The slot is released on
// every settlement path, including the transport timeout.
func (s *transactionService) submit(ctx context.Context, op string, send func(ctx context.Context) error) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return common.ErrOperationInProgress
	}

	sendCtx := context.WithoutCancel(ctx)
	done := make(chan error, 1)

	go func() {
		err := send(sendCtx)
		if err == nil {
			// Stale-marking happens before the caller sees success.
			s.cache.Invalidate()
			s.refresh(sendCtx)
		} else {
			s.log.Warn(sendCtx, "mutation failed", "op", op, "err", err)
		}
		s.inFlight.Store(false)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The caller stopped waiting; settlement continues above.
		s.log.Warn(sendCtx, "caller stopped waiting for mutation", "op", op)
		return fmt.Errorf("%w: %v", common.ErrUnreachable, ctx.Err())
	}
}
