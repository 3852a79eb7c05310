package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType int

const (
	TransactionCreditIncrease TransactionType = iota + 1
	TransactionChargeSale
)

var transactionTypeNames = map[TransactionType]string{
	TransactionCreditIncrease: "credit_increase",
	TransactionChargeSale:     "charge_sale",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

func (t TransactionType) Valid() bool {
	_, ok := transactionTypeNames[t]
	return ok
}

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TransactionType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(name))
}

func (t *TransactionType) UnmarshalText(b []byte) error {
	for typ, n := range transactionTypeNames {
		if n == string(b) {
			*t = typ
			return nil
		}
	}
	return fmt.Errorf("invalid transaction type %q", string(b))
}

type TransactionStatus int

const (
	TransactionPending TransactionStatus = iota + 1
	TransactionCompleted
	TransactionFailed
	TransactionCancelled
)

var transactionStatusNames = map[TransactionStatus]string{
	TransactionPending:   "pending",
	TransactionCompleted: "completed",
	TransactionFailed:    "failed",
	TransactionCancelled: "cancelled",
}

func (s TransactionStatus) String() string {
	if name, ok := transactionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s TransactionStatus) Valid() bool {
	_, ok := transactionStatusNames[s]
	return ok
}

func (s TransactionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TransactionStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for status, n := range transactionStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("invalid transaction status %q", name)
}

// Transaction is an immutable ledger entry. One row is written per balance
// mutation (or terminally failed attempt) inside the same database
// transaction as the mutation itself, so the log reconciles exactly with
// every balance change: BalanceAfter - BalanceBefore equals the signed
// amount for completed entries, zero otherwise.
type Transaction struct {
	ID              int64             `json:"id" db:"id"`
	ReferenceID     string            `json:"reference_id" db:"reference_id"`
	SellerID        int64             `json:"seller" db:"seller_id"`
	Type            TransactionType   `json:"transaction_type" db:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	Status          TransactionStatus `json:"status" db:"status"`
	BalanceBefore   decimal.Decimal   `json:"balance_before" db:"balance_before"`
	BalanceAfter    decimal.Decimal   `json:"balance_after" db:"balance_after"`
	CreditRequestID *int64            `json:"credit_request,omitempty" db:"credit_request_id"`
	ChargeOrderID   *int64            `json:"charge_order,omitempty" db:"charge_order_id"`
	ProcessedBy     *int64            `json:"processed_by,omitempty" db:"processed_by"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}
