package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/chargeseller/backend/internal/models"
)

const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
)

// LedgerService owns every balance mutation. Callers never update a seller
// balance directly: they run inside WithSellerLock, apply deltas through
// Credit/Debit and append exactly one ledger entry per mutation, all within
// the same database transaction.
type LedgerService struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewLedgerService(db *sql.DB, lockTimeout time.Duration) *LedgerService {
	return &LedgerService{db: db, lockTimeout: lockTimeout}
}

// WithSellerLock runs fn with an exclusive row lock on the seller, inside a
// single database transaction. The lock is held until commit or rollback, so
// mutations for one seller serialize in arrival order while other sellers
// proceed in parallel. A lock wait past the configured timeout surfaces as
// ErrBusy instead of blocking indefinitely; the caller retries.
func (s *LedgerService) WithSellerLock(ctx context.Context, sellerID int64, fn func(tx *sql.Tx, seller *models.Seller) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if s.lockTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	seller, err := s.lockSeller(ctx, tx, sellerID)
	if err != nil {
		return err
	}

	if err := fn(tx, seller); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *LedgerService) lockSeller(ctx context.Context, tx *sql.Tx, sellerID int64) (*models.Seller, error) {
	var seller models.Seller
	err := tx.QueryRowContext(ctx, `
		SELECT id, user_id, balance, created_at, updated_at
		FROM sellers
		WHERE id = $1
		FOR UPDATE`, sellerID).
		Scan(&seller.ID, &seller.UserID, &seller.Balance, &seller.CreatedAt, &seller.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if isLockTimeout(err) {
		log.Printf("[LEDGER] Lock wait timed out for seller %d", sellerID)
		return nil, ErrBusy
	}
	if err != nil {
		return nil, fmt.Errorf("lock seller %d: %w", sellerID, err)
	}
	return &seller, nil
}

// Credit adds amount to the locked seller's balance and returns the
// before/after snapshots for the audit record. The seller row lock must
// already be held by the enclosing transaction.
func (s *LedgerService) Credit(tx *sql.Tx, seller *models.Seller, amount decimal.Decimal) (before, after decimal.Decimal, err error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, ErrInvalidAmount
	}
	return s.applyDelta(tx, seller, amount)
}

// Debit subtracts amount from the locked seller's balance. Fails with
// ErrInsufficientFunds before touching the row if the balance would go
// negative.
func (s *LedgerService) Debit(tx *sql.Tx, seller *models.Seller, amount decimal.Decimal) (before, after decimal.Decimal, err error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, ErrInvalidAmount
	}
	if seller.Balance.LessThan(amount) {
		return decimal.Zero, decimal.Zero, ErrInsufficientFunds
	}
	return s.applyDelta(tx, seller, amount.Neg())
}

// applyDelta is delta-based on purpose: the new balance is computed by the
// database, not assigned from a value read earlier.
func (s *LedgerService) applyDelta(tx *sql.Tx, seller *models.Seller, delta decimal.Decimal) (before, after decimal.Decimal, err error) {
	before = seller.Balance
	err = tx.QueryRow(`
		UPDATE sellers
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance`, delta, seller.ID).Scan(&after)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("apply balance delta for seller %d: %w", seller.ID, err)
	}
	seller.Balance = after
	return before, after, nil
}

// AppendEntry writes one immutable ledger entry within the caller's open
// transaction. A reference id collision means id generation is broken; it is
// reported as ErrDuplicateReference and never retried.
func (s *LedgerService) AppendEntry(tx *sql.Tx, entry *models.Transaction) error {
	err := tx.QueryRow(`
		INSERT INTO transactions
			(reference_id, seller_id, transaction_type, amount, status,
			 balance_before, balance_after, credit_request_id, charge_order_id,
			 processed_by, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, processed_at, created_at`,
		entry.ReferenceID, entry.SellerID, int(entry.Type), entry.Amount, int(entry.Status),
		entry.BalanceBefore, entry.BalanceAfter, entry.CreditRequestID, entry.ChargeOrderID,
		entry.ProcessedBy).
		Scan(&entry.ID, &entry.ProcessedAt, &entry.CreatedAt)
	if isUniqueViolation(err) {
		log.Printf("[LEDGER] Reference id collision: %s", entry.ReferenceID)
		return ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable
}
