package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chargeseller/backend/internal/models"
)

// CreditRequestService drives the credit request approval state machine:
// Pending→Approved or Pending→Rejected, exactly once.
type CreditRequestService struct {
	db     *sql.DB
	ledger *LedgerService
}

func NewCreditRequestService(db *sql.DB, ledger *LedgerService) *CreditRequestService {
	return &CreditRequestService{db: db, ledger: ledger}
}

// Submit records a pending credit request. The balance is untouched and the
// seller row is not locked: balance risk only materializes at approval.
func (s *CreditRequestService) Submit(ctx context.Context, sellerID int64, amount decimal.Decimal, description string) (*models.CreditRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sellers WHERE id = $1)`, sellerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check seller %d: %w", sellerID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	req := &models.CreditRequest{
		SellerID:    sellerID,
		Amount:      amount,
		Status:      models.CreditRequestPending,
		Description: description,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO credit_requests (seller_id, amount, status, description, is_processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		sellerID, amount, int(models.CreditRequestPending), description).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create credit request: %w", err)
	}

	log.Printf("[CREDIT] Request %d created for seller %d, amount %s", req.ID, sellerID, amount)
	return req, nil
}

// Decide finalizes a pending request. Approval credits the seller inside the
// seller lock; rejection changes no balance. Either way the request is
// marked processed and one ledger entry is appended, all in one atomic unit
// that commits or rolls back together. Deciding an already-processed request
// fails with ErrAlreadyProcessed.
func (s *CreditRequestService) Decide(ctx context.Context, requestID int64, decision models.CreditRequestStatus, actorID int64) (*models.CreditRequest, error) {
	if decision != models.CreditRequestApproved && decision != models.CreditRequestRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	var sellerID int64
	err := s.db.QueryRowContext(ctx, `SELECT seller_id FROM credit_requests WHERE id = $1`, requestID).Scan(&sellerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load credit request %d: %w", requestID, err)
	}

	var decided *models.CreditRequest
	err = s.ledger.WithSellerLock(ctx, sellerID, func(tx *sql.Tx, seller *models.Seller) error {
		req, err := s.lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.IsProcessed || !req.Status.CanTransitionTo(decision) {
			return ErrAlreadyProcessed
		}

		before, after := seller.Balance, seller.Balance
		entryStatus := models.TransactionCancelled
		if decision == models.CreditRequestApproved {
			before, after, err = s.ledger.Credit(tx, seller, req.Amount)
			if err != nil {
				return err
			}
			entryStatus = models.TransactionCompleted
		}

		if err := tx.QueryRowContext(ctx, `
			UPDATE credit_requests
			SET status = $1, is_processed = TRUE, processed_at = NOW(), processed_by = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING processed_at, updated_at`,
			int(decision), actorID, requestID).Scan(&req.ProcessedAt, &req.UpdatedAt); err != nil {
			return fmt.Errorf("mark credit request %d processed: %w", requestID, err)
		}
		req.Status = decision
		req.IsProcessed = true
		req.ProcessedBy = &actorID

		entry := &models.Transaction{
			ReferenceID:     uuid.NewString(),
			SellerID:        seller.ID,
			Type:            models.TransactionCreditIncrease,
			Amount:          req.Amount,
			Status:          entryStatus,
			BalanceBefore:   before,
			BalanceAfter:    after,
			CreditRequestID: &req.ID,
			ProcessedBy:     &actorID,
		}
		if err := s.ledger.AppendEntry(tx, entry); err != nil {
			return err
		}

		decided = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CREDIT] Request %d %s by user %d", requestID, decided.Status, actorID)
	return decided, nil
}

func (s *CreditRequestService) lockRequest(ctx context.Context, tx *sql.Tx, id int64) (*models.CreditRequest, error) {
	var req models.CreditRequest
	err := tx.QueryRowContext(ctx, `
		SELECT id, seller_id, amount, status, description, is_processed,
		       processed_at, processed_by, created_at, updated_at
		FROM credit_requests
		WHERE id = $1
		FOR UPDATE`, id).
		Scan(&req.ID, &req.SellerID, &req.Amount, &req.Status, &req.Description,
			&req.IsProcessed, &req.ProcessedAt, &req.ProcessedBy, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock credit request %d: %w", id, err)
	}
	return &req, nil
}

// Get reads a request without locking anything.
func (s *CreditRequestService) Get(ctx context.Context, id int64) (*models.CreditRequest, error) {
	var req models.CreditRequest
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seller_id, amount, status, description, is_processed,
		       processed_at, processed_by, created_at, updated_at
		FROM credit_requests
		WHERE id = $1`, id).
		Scan(&req.ID, &req.SellerID, &req.Amount, &req.Status, &req.Description,
			&req.IsProcessed, &req.ProcessedAt, &req.ProcessedBy, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch credit request %d: %w", id, err)
	}
	return &req, nil
}

// ListBySeller returns a seller's requests, newest first.
func (s *CreditRequestService) ListBySeller(ctx context.Context, sellerID int64) ([]models.CreditRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seller_id, amount, status, description, is_processed,
		       processed_at, processed_by, created_at, updated_at
		FROM credit_requests
		WHERE seller_id = $1
		ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list credit requests for seller %d: %w", sellerID, err)
	}
	defer rows.Close()

	requests := []models.CreditRequest{}
	for rows.Next() {
		var req models.CreditRequest
		if err := rows.Scan(&req.ID, &req.SellerID, &req.Amount, &req.Status, &req.Description,
			&req.IsProcessed, &req.ProcessedAt, &req.ProcessedBy, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
