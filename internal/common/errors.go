// Package common defines shared constants and sentinel errors used across
// the PocketBank client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Local validation errors. None of these ever cause a network call.
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnknownRecipient     = errors.New("unknown recipient")
	ErrSelfTransferRejected = errors.New("transfer to own account rejected")

	// ErrOperationInProgress is returned while another mutation holds the
	// single-flight slot.
	ErrOperationInProgress = errors.New("another operation is in progress")

	// Session / transport errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnreachable     = errors.New("server unreachable")

	// Credential store errors.
	ErrNoCredential       = errors.New("no stored credential")
	ErrStorageUnavailable = errors.New("credential storage unavailable")
)
