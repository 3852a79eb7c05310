package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chargeseller/backend/internal/models"
)

// TransactionService is the read side of the ledger. Reporting never takes
// the seller lock and only ever observes committed state.
type TransactionService struct {
	db *sql.DB
}

func NewTransactionService(db *sql.DB) *TransactionService {
	return &TransactionService{db: db}
}

// TransactionFilters narrows a ledger listing. Nil fields are ignored.
type TransactionFilters struct {
	Type          *models.TransactionType
	SellerID      *int64
	PhoneNumberID *int64
	Limit         int
}

const transactionColumns = `id, reference_id, seller_id, transaction_type, amount, status,
       balance_before, balance_after, credit_request_id, charge_order_id,
       processed_by, processed_at, created_at`

// List returns ledger entries matching the filters, newest first.
func (s *TransactionService) List(ctx context.Context, f TransactionFilters) ([]models.Transaction, error) {
	var (
		conditions []string
		args       []any
	)
	if f.Type != nil {
		args = append(args, int(*f.Type))
		conditions = append(conditions, "transaction_type = $"+strconv.Itoa(len(args)))
	}
	if f.SellerID != nil {
		args = append(args, *f.SellerID)
		conditions = append(conditions, "seller_id = $"+strconv.Itoa(len(args)))
	}
	if f.PhoneNumberID != nil {
		args = append(args, *f.PhoneNumberID)
		conditions = append(conditions,
			"charge_order_id IN (SELECT id FROM charge_orders WHERE phone_number_id = $"+strconv.Itoa(len(args))+")")
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.ReferenceID, &t.SellerID, &t.Type, &t.Amount, &t.Status,
			&t.BalanceBefore, &t.BalanceAfter, &t.CreditRequestID, &t.ChargeOrderID,
			&t.ProcessedBy, &t.ProcessedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// Get fetches one ledger entry by its reference id.
func (s *TransactionService) Get(ctx context.Context, referenceID string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE reference_id = $1", referenceID).
		Scan(&t.ID, &t.ReferenceID, &t.SellerID, &t.Type, &t.Amount, &t.Status,
			&t.BalanceBefore, &t.BalanceAfter, &t.CreditRequestID, &t.ChargeOrderID,
			&t.ProcessedBy, &t.ProcessedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", referenceID, err)
	}
	return &t, nil
}

// Reconcile sums the signed deltas of a seller's completed entries and
// returns them with the current balance. A healthy ledger satisfies
// delta == balance - initial balance.
func (s *TransactionService) Reconcile(ctx context.Context, sellerID int64) (delta, balance decimal.Decimal, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance_after - balance_before), 0)
		FROM transactions
		WHERE seller_id = $1 AND status = $2`,
		sellerID, int(models.TransactionCompleted)).Scan(&delta)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum ledger deltas for seller %d: %w", sellerID, err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT balance FROM sellers WHERE id = $1`, sellerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fetch balance for seller %d: %w", sellerID, err)
	}
	return delta, balance, nil
}
