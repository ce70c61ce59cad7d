// Package models contains the client-side data model: the account
// snapshots the cache holds and the wire shapes they decode from.
package models

import "github.com/shopspring/decimal"

// Account is one account as reported by the server. Balance is always
// the server's authoritative value; the client never computes it.
type Account struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	ImagePath string          `json:"imagePath,omitempty"`
}
