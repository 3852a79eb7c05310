package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chargeseller/backend/internal/config"
	"github.com/chargeseller/backend/internal/models"
)

// ChargeOrderService debits seller balances against phone numbers. The
// dedupe key is the tuple (seller, phone number, amount) over a trailing
// window: two legitimately distinct same-amount charges to the same number
// inside the window are indistinguishable from a retry and are rejected.
// That coarseness is an accepted trade-off, not a bug.
type ChargeOrderService struct {
	db     *sql.DB
	redis  *redis.Client
	ledger *LedgerService
	cfg    *config.ChargeConfig
}

func NewChargeOrderService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, cfg *config.ChargeConfig) *ChargeOrderService {
	return &ChargeOrderService{
		db:     db,
		redis:  redisClient,
		ledger: ledger,
		cfg:    cfg,
	}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Submit creates and immediately settles a charge order. Duplicate
// submissions inside the dedupe window bump retry_count on the matched order
// and come back as *DuplicateOrderError. An insufficient balance is recorded
// as a failed order plus a failed ledger entry (balance untouched) and still
// reported to the caller. Everything between the duplicate re-check and the
// order completion runs in one atomic unit under the seller lock.
func (s *ChargeOrderService) Submit(ctx context.Context, sellerID, phoneNumberID int64, amount decimal.Decimal) (*models.ChargeOrder, error) {
	if amount.LessThan(s.cfg.MinAmount) {
		return nil, ErrInvalidAmount
	}

	if err := s.checkPhoneNumber(ctx, phoneNumberID); err != nil {
		return nil, err
	}

	// Fast path: a known duplicate is rejected without taking the seller
	// lock at all.
	dup, err := s.findRecentDuplicate(ctx, sellerID, phoneNumberID, amount)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, s.recordDuplicate(ctx, s.db, dup)
	}

	var (
		order    *models.ChargeOrder
		dupErr   *DuplicateOrderError
		debitErr error
	)
	err = s.ledger.WithSellerLock(ctx, sellerID, func(tx *sql.Tx, seller *models.Seller) error {
		// Re-check under the lock: a concurrent submission may have created
		// a matching order after the fast-path check. The seller lock
		// serializes submissions, so this check is race-free.
		dup, err := s.queryRecentDuplicate(ctx, tx, sellerID, phoneNumberID, amount)
		if err != nil {
			return err
		}
		if dup != nil {
			dupErr = s.recordDuplicate(ctx, tx, dup)
			// The retry bump must commit, so this is not an error here.
			return nil
		}

		order = &models.ChargeOrder{
			SellerID:      sellerID,
			PhoneNumberID: phoneNumberID,
			Amount:        amount,
			Status:        models.ChargeOrderProcessing,
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO charge_orders (seller_id, phone_number_id, amount, status, retry_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			sellerID, phoneNumberID, amount, int(models.ChargeOrderProcessing)).
			Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return fmt.Errorf("create charge order: %w", err)
		}

		before, after, err := s.ledger.Debit(tx, seller, amount)
		if errors.Is(err, ErrInsufficientFunds) {
			// Record the failed attempt so it is auditable. The unit still
			// commits; the failure is reported through debitErr.
			debitErr = err
			return s.failOrder(ctx, tx, order, seller, err.Error())
		}
		if err != nil {
			return err
		}

		entry := &models.Transaction{
			ReferenceID:   uuid.NewString(),
			SellerID:      seller.ID,
			Type:          models.TransactionChargeSale,
			Amount:        amount,
			Status:        models.TransactionCompleted,
			BalanceBefore: before,
			BalanceAfter:  after,
			ChargeOrderID: &order.ID,
		}
		if err := s.ledger.AppendEntry(tx, entry); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE charge_orders
			SET status = $1, transaction_id = $2, updated_at = NOW()
			WHERE id = $3`,
			int(models.ChargeOrderCompleted), entry.ID, order.ID); err != nil {
			return fmt.Errorf("complete charge order %d: %w", order.ID, err)
		}
		order.Status = models.ChargeOrderCompleted
		order.TransactionID = &entry.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	if debitErr != nil {
		log.Printf("[CHARGE] Order %d failed for seller %d: %v", order.ID, sellerID, debitErr)
		return order, debitErr
	}

	s.cacheOrder(ctx, order)
	log.Printf("[CHARGE] Order %d completed for seller %d, amount %s", order.ID, sellerID, amount)
	return order, nil
}

func (s *ChargeOrderService) failOrder(ctx context.Context, tx *sql.Tx, order *models.ChargeOrder, seller *models.Seller, message string) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE charge_orders
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3`,
		int(models.ChargeOrderFailed), message, order.ID); err != nil {
		return fmt.Errorf("mark charge order %d failed: %w", order.ID, err)
	}
	order.Status = models.ChargeOrderFailed
	order.ErrorMessage = message

	entry := &models.Transaction{
		ReferenceID:   uuid.NewString(),
		SellerID:      seller.ID,
		Type:          models.TransactionChargeSale,
		Amount:        order.Amount,
		Status:        models.TransactionFailed,
		BalanceBefore: seller.Balance,
		BalanceAfter:  seller.Balance,
		ChargeOrderID: &order.ID,
	}
	return s.ledger.AppendEntry(tx, entry)
}

// recordDuplicate bumps the matched order's retry count and annotates it,
// then builds the rejection for the caller.
func (s *ChargeOrderService) recordDuplicate(ctx context.Context, q queryRower, dup *models.ChargeOrder) *DuplicateOrderError {
	note := fmt.Sprintf("duplicate submission rejected at %s", time.Now().UTC().Format(time.RFC3339))
	var retryCount int
	err := q.QueryRowContext(ctx, `
		UPDATE charge_orders
		SET retry_count = retry_count + 1, error_message = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING retry_count`, note, dup.ID).Scan(&retryCount)
	if err != nil {
		// The rejection stands even if the bookkeeping write failed.
		log.Printf("[CHARGE] Failed to record duplicate for order %d: %v", dup.ID, err)
		retryCount = dup.RetryCount + 1
	}
	log.Printf("[CHARGE] Duplicate rejected: order %d, retry count %d", dup.ID, retryCount)
	return &DuplicateOrderError{OrderID: dup.ID, RetryCount: retryCount}
}

// findRecentDuplicate consults the redis hint first and falls back to the
// window scan. The cache is advisory only; the scan under the seller lock in
// Submit is the authoritative check.
func (s *ChargeOrderService) findRecentDuplicate(ctx context.Context, sellerID, phoneNumberID int64, amount decimal.Decimal) (*models.ChargeOrder, error) {
	if s.redis != nil {
		var orderID int64
		err := s.redis.Get(ctx, s.dedupeKey(sellerID, phoneNumberID, amount)).Scan(&orderID)
		if err == nil {
			order, loadErr := s.Get(ctx, orderID)
			if loadErr == nil && s.isDuplicateOf(order, sellerID, phoneNumberID, amount) {
				return order, nil
			}
		} else if err != redis.Nil {
			log.Printf("[CHARGE] Dedupe cache lookup failed: %v", err)
		}
	}
	return s.queryRecentDuplicate(ctx, s.db, sellerID, phoneNumberID, amount)
}

func (s *ChargeOrderService) isDuplicateOf(order *models.ChargeOrder, sellerID, phoneNumberID int64, amount decimal.Decimal) bool {
	return order.SellerID == sellerID &&
		order.PhoneNumberID == phoneNumberID &&
		order.Amount.Equal(amount) &&
		order.Status != models.ChargeOrderFailed &&
		order.Status != models.ChargeOrderCancelled &&
		time.Since(order.CreatedAt) < s.cfg.DedupeWindow
}

func (s *ChargeOrderService) queryRecentDuplicate(ctx context.Context, q queryRower, sellerID, phoneNumberID int64, amount decimal.Decimal) (*models.ChargeOrder, error) {
	cutoff := time.Now().Add(-s.cfg.DedupeWindow)
	var order models.ChargeOrder
	err := q.QueryRowContext(ctx, `
		SELECT id, seller_id, phone_number_id, amount, status, error_message,
		       retry_count, transaction_id, created_at, updated_at
		FROM charge_orders
		WHERE seller_id = $1 AND phone_number_id = $2 AND amount = $3
		  AND status NOT IN ($4, $5)
		  AND created_at > $6
		ORDER BY created_at DESC
		LIMIT 1`,
		sellerID, phoneNumberID, amount,
		int(models.ChargeOrderFailed), int(models.ChargeOrderCancelled), cutoff).
		Scan(&order.ID, &order.SellerID, &order.PhoneNumberID, &order.Amount, &order.Status,
			&order.ErrorMessage, &order.RetryCount, &order.TransactionID, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	return &order, nil
}

// cacheOrder stores the completed order id under the dedupe key so repeat
// submissions inside the window short-circuit. Best effort.
func (s *ChargeOrderService) cacheOrder(ctx context.Context, order *models.ChargeOrder) {
	if s.redis == nil {
		return
	}
	key := s.dedupeKey(order.SellerID, order.PhoneNumberID, order.Amount)
	if err := s.redis.Set(ctx, key, order.ID, s.cfg.DedupeWindow).Err(); err != nil {
		log.Printf("[CHARGE] Failed to cache dedupe key for order %d: %v", order.ID, err)
	}
}

func (s *ChargeOrderService) dedupeKey(sellerID, phoneNumberID int64, amount decimal.Decimal) string {
	return fmt.Sprintf("charge:dedupe:%d:%d:%s", sellerID, phoneNumberID, amount.StringFixed(2))
}

func (s *ChargeOrderService) checkPhoneNumber(ctx context.Context, id int64) error {
	var active bool
	err := s.db.QueryRowContext(ctx, `SELECT is_active FROM phone_numbers WHERE id = $1`, id).Scan(&active)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check phone number %d: %w", id, err)
	}
	if !active {
		return ErrNotFound
	}
	return nil
}

// Get reads one order without locking.
func (s *ChargeOrderService) Get(ctx context.Context, id int64) (*models.ChargeOrder, error) {
	var order models.ChargeOrder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seller_id, phone_number_id, amount, status, error_message,
		       retry_count, transaction_id, created_at, updated_at
		FROM charge_orders
		WHERE id = $1`, id).
		Scan(&order.ID, &order.SellerID, &order.PhoneNumberID, &order.Amount, &order.Status,
			&order.ErrorMessage, &order.RetryCount, &order.TransactionID, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch charge order %d: %w", id, err)
	}
	return &order, nil
}

// ListBySeller returns a seller's orders, newest first. Never locks.
func (s *ChargeOrderService) ListBySeller(ctx context.Context, sellerID int64) ([]models.ChargeOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, phone_number_id, amount, status, error_message,
		       retry_count, transaction_id, created_at, updated_at
		FROM charge_orders
		WHERE seller_id = $1
		ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list charge orders for seller %d: %w", sellerID, err)
	}
	defer rows.Close()

	orders := []models.ChargeOrder{}
	for rows.Next() {
		var order models.ChargeOrder
		if err := rows.Scan(&order.ID, &order.SellerID, &order.PhoneNumberID, &order.Amount, &order.Status,
			&order.ErrorMessage, &order.RetryCount, &order.TransactionID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
