package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ChargeOrderStatus int

const (
	ChargeOrderPending ChargeOrderStatus = iota + 1
	ChargeOrderProcessing
	ChargeOrderCompleted
	ChargeOrderFailed
	ChargeOrderCancelled
)

var chargeOrderStatusNames = map[ChargeOrderStatus]string{
	ChargeOrderPending:    "pending",
	ChargeOrderProcessing: "processing",
	ChargeOrderCompleted:  "completed",
	ChargeOrderFailed:     "failed",
	ChargeOrderCancelled:  "cancelled",
}

func (s ChargeOrderStatus) String() string {
	if name, ok := chargeOrderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s ChargeOrderStatus) Valid() bool {
	_, ok := chargeOrderStatusNames[s]
	return ok
}

// Terminal reports whether the order can no longer change. Failed and
// cancelled orders do not count toward duplicate detection.
func (s ChargeOrderStatus) Terminal() bool {
	return s == ChargeOrderCompleted || s == ChargeOrderFailed || s == ChargeOrderCancelled
}

func (s ChargeOrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ChargeOrderStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for status, n := range chargeOrderStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("invalid charge order status %q", name)
}

// ChargeOrder is a seller's request to debit funds against a phone number.
// A completed order links to exactly one ledger transaction whose delta
// equals the negated amount. Duplicate submissions inside the dedupe window
// bump RetryCount on the existing order instead of creating a new one.
type ChargeOrder struct {
	ID            int64             `json:"id" db:"id"`
	SellerID      int64             `json:"seller" db:"seller_id"`
	PhoneNumberID int64             `json:"phone_number" db:"phone_number_id"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Status        ChargeOrderStatus `json:"status" db:"status"`
	ErrorMessage  string            `json:"error_message,omitempty" db:"error_message"`
	RetryCount    int               `json:"retry_count" db:"retry_count"`
	TransactionID *int64            `json:"transaction_id,omitempty" db:"transaction_id"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}
