package cli

import (
	"errors"

	"github.com/dkurbatov/pocketbank/internal/client/api"
	"github.com/dkurbatov/pocketbank/internal/common"
)

// describeError renders an error from the core as a user-facing line.
func describeError(err error) string {
	var reqErr *api.RequestError
	switch {
	case errors.Is(err, common.ErrInvalidAmount):
		return "Amount must be a number greater than 0."
	case errors.Is(err, common.ErrInsufficientFunds):
		return "Insufficient funds."
	case errors.Is(err, common.ErrUnknownRecipient):
		return "No such recipient."
	case errors.Is(err, common.ErrSelfTransferRejected):
		return "You cannot transfer money to yourself."
	case errors.Is(err, common.ErrOperationInProgress):
		return "Another operation is still in progress, please wait."
	case errors.Is(err, common.ErrUnauthenticated):
		return "Not logged in."
	case errors.Is(err, common.ErrUnreachable):
		return "Server unreachable, please try again later."
	case errors.Is(err, common.ErrStorageUnavailable):
		return "Local credential storage failed."
	case errors.As(err, &reqErr):
		return "Rejected by server: " + reqErr.Message
	default:
		return "Error: " + err.Error()
	}
}
