package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by the balance-mutating services. Every one of them
// is reported to the caller; none are swallowed.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAlreadyProcessed   = errors.New("credit request already processed")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	ErrBusy               = errors.New("seller account busy")
)

// DuplicateOrderError rejects a charge order that matches an existing order
// inside the dedupe window. It carries the matched order's id and its retry
// count after the rejected submission was recorded.
type DuplicateOrderError struct {
	OrderID    int64 `json:"order_id"`
	RetryCount int   `json:"retry_count"`
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("duplicate charge order: matches order %d (retry count %d)", e.OrderID, e.RetryCount)
}
