package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Seller holds one seller's spendable balance. The balance is only ever
// mutated through the ledger service while the seller row is locked, and it
// never goes below zero.
type Seller struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
