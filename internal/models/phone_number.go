package models

import (
	"time"
)

// PhoneNumber is static reference data: a chargeable target. No concurrency
// risk, plain CRUD.
type PhoneNumber struct {
	ID          int64     `json:"id" db:"id"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
