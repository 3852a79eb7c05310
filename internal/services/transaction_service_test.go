package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chargeseller/backend/internal/models"
)

func transactionColumnsList() []string {
	return []string{"id", "reference_id", "seller_id", "transaction_type", "amount", "status",
		"balance_before", "balance_after", "credit_request_id", "charge_order_id",
		"processed_by", "processed_at", "created_at"}
}

func TestTransactionService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("no filters", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewTransactionService(db)

		mock.ExpectQuery("FROM transactions ORDER BY created_at DESC").
			WithArgs(100).
			WillReturnRows(sqlmock.NewRows(transactionColumnsList()).
				AddRow(2, "ref-2", 1, int(models.TransactionChargeSale), "250.00", int(models.TransactionCompleted),
					"2500.00", "2250.00", nil, 9, nil, time.Now(), time.Now()).
				AddRow(1, "ref-1", 1, int(models.TransactionCreditIncrease), "500.00", int(models.TransactionCompleted),
					"2000.00", "2500.00", 7, nil, 5, time.Now(), time.Now()))

		transactions, err := service.List(ctx, TransactionFilters{})

		assert.NoError(t, err)
		assert.Len(t, transactions, 2)
		assert.Equal(t, models.TransactionChargeSale, transactions[0].Type)
		assert.Equal(t, int64(7), *transactions[1].CreditRequestID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("type and seller filters", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewTransactionService(db)

		typ := models.TransactionCreditIncrease
		sellerID := int64(1)
		mock.ExpectQuery("FROM transactions WHERE transaction_type").
			WithArgs(int(typ), sellerID, 100).
			WillReturnRows(sqlmock.NewRows(transactionColumnsList()))

		transactions, err := service.List(ctx, TransactionFilters{Type: &typ, SellerID: &sellerID})

		assert.NoError(t, err)
		assert.Empty(t, transactions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("phone number filter joins through charge orders", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewTransactionService(db)

		phoneID := int64(3)
		mock.ExpectQuery("FROM transactions WHERE charge_order_id IN").
			WithArgs(phoneID, 50).
			WillReturnRows(sqlmock.NewRows(transactionColumnsList()))

		_, err = service.List(ctx, TransactionFilters{PhoneNumberID: &phoneID, Limit: 50})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit is capped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewTransactionService(db)

		mock.ExpectQuery("FROM transactions").
			WithArgs(100).
			WillReturnRows(sqlmock.NewRows(transactionColumnsList()))

		_, err = service.List(ctx, TransactionFilters{Limit: 10_000})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db)

	t.Run("found by reference", func(t *testing.T) {
		mock.ExpectQuery("FROM transactions WHERE reference_id").
			WithArgs("ref-1").
			WillReturnRows(sqlmock.NewRows(transactionColumnsList()).
				AddRow(1, "ref-1", 1, int(models.TransactionCreditIncrease), "500.00", int(models.TransactionCompleted),
					"2000.00", "2500.00", 7, nil, 5, time.Now(), time.Now()))

		tx, err := service.Get(context.Background(), "ref-1")

		assert.NoError(t, err)
		assert.Equal(t, "ref-1", tx.ReferenceID)
		assert.True(t, tx.BalanceAfter.Sub(tx.BalanceBefore).Equal(tx.Amount))
	})

	t.Run("unknown reference", func(t *testing.T) {
		mock.ExpectQuery("FROM transactions WHERE reference_id").
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(transactionColumnsList()))

		_, err := service.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionService_Reconcile(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewTransactionService(db)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(int64(1), int(models.TransactionCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("1500.00"))
	mock.ExpectQuery("SELECT balance FROM sellers").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("1500.00"))

	delta, balance, err := service.Reconcile(context.Background(), 1)

	assert.NoError(t, err)
	assert.True(t, delta.Equal(balance))
	assert.True(t, delta.Equal(decimal.RequireFromString("1500.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
