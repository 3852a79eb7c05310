package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chargeseller/backend/internal/models"
)

// SellerService reads seller accounts. Balance writes go through the ledger
// service only.
type SellerService struct {
	db *sql.DB
}

func NewSellerService(db *sql.DB) *SellerService {
	return &SellerService{db: db}
}

func (s *SellerService) Get(ctx context.Context, id int64) (*models.Seller, error) {
	return s.fetch(ctx, `WHERE id = $1`, id)
}

func (s *SellerService) GetByUserID(ctx context.Context, userID int64) (*models.Seller, error) {
	return s.fetch(ctx, `WHERE user_id = $1`, userID)
}

func (s *SellerService) fetch(ctx context.Context, where string, arg any) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at, updated_at FROM sellers `+where, arg).
		Scan(&seller.ID, &seller.UserID, &seller.Balance, &seller.CreatedAt, &seller.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch seller: %w", err)
	}
	return &seller, nil
}
