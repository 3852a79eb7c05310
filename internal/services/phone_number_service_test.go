package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPhoneNumberService(t *testing.T) {
	ctx := context.Background()

	t.Run("list active only", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewPhoneNumberService(db)

		mock.ExpectQuery("FROM phone_numbers WHERE is_active").
			WillReturnRows(sqlmock.NewRows([]string{"id", "phone_number", "is_active", "created_at"}).
				AddRow(1, "09123456789", true, time.Now()).
				AddRow(2, "09987654321", true, time.Now()))

		numbers, err := service.List(ctx, true)

		assert.NoError(t, err)
		assert.Len(t, numbers, 2)
		assert.Equal(t, "09123456789", numbers[0].PhoneNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("create", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewPhoneNumberService(db)

		mock.ExpectQuery("INSERT INTO phone_numbers").
			WithArgs("09123456789").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

		pn, err := service.Create(ctx, "09123456789")

		assert.NoError(t, err)
		assert.Equal(t, int64(1), pn.ID)
		assert.True(t, pn.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("create duplicate number", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewPhoneNumberService(db)

		mock.ExpectQuery("INSERT INTO phone_numbers").
			WithArgs("09123456789").
			WillReturnError(&pq.Error{Code: pqUniqueViolation})

		_, err = service.Create(ctx, "09123456789")

		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deactivate unknown number", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewPhoneNumberService(db)

		mock.ExpectExec("UPDATE phone_numbers SET is_active").
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = service.Deactivate(ctx, 99)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSellerService_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewSellerService(db)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("FROM sellers WHERE id").
			WithArgs(int64(1)).
			WillReturnRows(newSellerRows("2000.00"))

		seller, err := service.Get(context.Background(), 1)

		assert.NoError(t, err)
		assert.Equal(t, int64(1), seller.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM sellers WHERE id").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}))

		_, err := service.Get(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
