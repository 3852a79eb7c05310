package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreditRequestStatus is the closed set of states a credit request moves
// through. Stored as an integer, serialized as its lowercase name.
type CreditRequestStatus int

const (
	CreditRequestPending CreditRequestStatus = iota + 1
	CreditRequestApproved
	CreditRequestRejected
)

var creditRequestStatusNames = map[CreditRequestStatus]string{
	CreditRequestPending:  "pending",
	CreditRequestApproved: "approved",
	CreditRequestRejected: "rejected",
}

func (s CreditRequestStatus) String() string {
	if name, ok := creditRequestStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s CreditRequestStatus) Valid() bool {
	_, ok := creditRequestStatusNames[s]
	return ok
}

// CanTransitionTo reports whether moving to next is legal. The only legal
// transitions are Pending→Approved and Pending→Rejected.
func (s CreditRequestStatus) CanTransitionTo(next CreditRequestStatus) bool {
	return s == CreditRequestPending &&
		(next == CreditRequestApproved || next == CreditRequestRejected)
}

func (s CreditRequestStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *CreditRequestStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for status, n := range creditRequestStatusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("invalid credit request status %q", name)
}

// CreditRequest is a seller's request to add funds, subject to admin
// approval. Once is_processed is set the row is immutable.
type CreditRequest struct {
	ID          int64               `json:"id" db:"id"`
	SellerID    int64               `json:"seller" db:"seller_id"`
	Amount      decimal.Decimal     `json:"amount" db:"amount"`
	Status      CreditRequestStatus `json:"status" db:"status"`
	Description string              `json:"description,omitempty" db:"description"`
	IsProcessed bool                `json:"is_processed" db:"is_processed"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy *int64              `json:"processed_by,omitempty" db:"processed_by"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}
