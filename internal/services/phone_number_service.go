package services

import (
	"context"
	"fmt"
	"log"

	"database/sql"

	"github.com/chargeseller/backend/internal/models"
)

// PhoneNumberService manages the chargeable phone number reference data.
// Plain CRUD, admin-gated at the router.
type PhoneNumberService struct {
	db *sql.DB
}

func NewPhoneNumberService(db *sql.DB) *PhoneNumberService {
	return &PhoneNumberService{db: db}
}

func (s *PhoneNumberService) List(ctx context.Context, activeOnly bool) ([]models.PhoneNumber, error) {
	query := `SELECT id, phone_number, is_active, created_at FROM phone_numbers`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list phone numbers: %w", err)
	}
	defer rows.Close()

	numbers := []models.PhoneNumber{}
	for rows.Next() {
		var pn models.PhoneNumber
		if err := rows.Scan(&pn.ID, &pn.PhoneNumber, &pn.IsActive, &pn.CreatedAt); err != nil {
			return nil, err
		}
		numbers = append(numbers, pn)
	}
	return numbers, rows.Err()
}

func (s *PhoneNumberService) Create(ctx context.Context, number string) (*models.PhoneNumber, error) {
	pn := &models.PhoneNumber{PhoneNumber: number, IsActive: true}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO phone_numbers (phone_number, is_active, created_at)
		VALUES ($1, TRUE, NOW())
		RETURNING id, created_at`, number).
		Scan(&pn.ID, &pn.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("create phone number: %w", err)
	}
	log.Printf("[PHONE] Created phone number %s (id %d)", number, pn.ID)
	return pn, nil
}

func (s *PhoneNumberService) Deactivate(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE phone_numbers SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate phone number %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
