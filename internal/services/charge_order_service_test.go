package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chargeseller/backend/internal/config"
	"github.com/chargeseller/backend/internal/models"
)

func newChargeOrderService(t *testing.T) (*ChargeOrderService, sqlmock.Sqlmock, redismock.ClientMock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	redisClient, redisMock := redismock.NewClientMock()

	cfg := &config.ChargeConfig{
		MinAmount:    decimal.RequireFromString("1.00"),
		DedupeWindow: 10 * time.Minute,
	}
	ledger := NewLedgerService(db, 0)
	service := NewChargeOrderService(db, redisClient, ledger, cfg)
	return service, mock, redisMock, func() { db.Close() }
}

func chargeOrderColumns() []string {
	return []string{"id", "seller_id", "phone_number_id", "amount", "status",
		"error_message", "retry_count", "transaction_id", "created_at", "updated_at"}
}

func expectActivePhone(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery("SELECT is_active FROM phone_numbers").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
}

func TestChargeOrderService_Submit(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("500.00")

	t.Run("successful charge debits and completes", func(t *testing.T) {
		service, mock, redisMock, done := newChargeOrderService(t)
		defer done()

		expectActivePhone(mock, 3)
		redisMock.ExpectGet("charge:dedupe:1:3:500.00").RedisNil()
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, user_id, balance").
			WithArgs(int64(1)).
			WillReturnRows(newSellerRows("2000.00"))
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()))
		mock.ExpectQuery("INSERT INTO charge_orders").
			WithArgs(int64(1), int64(3), sqlmock.AnyArg(), int(models.ChargeOrderProcessing)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(9, time.Now(), time.Now()))
		mock.ExpectQuery("UPDATE sellers").
			WithArgs(sqlmock.AnyArg(), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("1500.00"))
		mock.ExpectQuery("INSERT INTO transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "processed_at", "created_at"}).
				AddRow(42, time.Now(), time.Now()))
		mock.ExpectExec("UPDATE charge_orders").
			WithArgs(int(models.ChargeOrderCompleted), int64(42), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		redisMock.ExpectSet("charge:dedupe:1:3:500.00", int64(9), 10*time.Minute).SetVal("OK")

		order, err := service.Submit(ctx, 1, 3, amount)

		assert.NoError(t, err)
		assert.Equal(t, int64(9), order.ID)
		assert.Equal(t, models.ChargeOrderCompleted, order.Status)
		assert.Equal(t, int64(42), *order.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("insufficient balance records a failed order", func(t *testing.T) {
		service, mock, redisMock, done := newChargeOrderService(t)
		defer done()

		expectActivePhone(mock, 3)
		redisMock.ExpectGet("charge:dedupe:1:3:500.00").RedisNil()
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, user_id, balance").
			WithArgs(int64(1)).
			WillReturnRows(newSellerRows("100.00"))
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()))
		mock.ExpectQuery("INSERT INTO charge_orders").
			WithArgs(int64(1), int64(3), sqlmock.AnyArg(), int(models.ChargeOrderProcessing)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(9, time.Now(), time.Now()))
		// The failed attempt commits: order marked failed plus a failed
		// ledger entry, balance untouched.
		mock.ExpectExec("UPDATE charge_orders").
			WithArgs(int(models.ChargeOrderFailed), sqlmock.AnyArg(), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "processed_at", "created_at"}).
				AddRow(43, time.Now(), time.Now()))
		mock.ExpectCommit()

		order, err := service.Submit(ctx, 1, 3, amount)

		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NotNil(t, order)
		assert.Equal(t, models.ChargeOrderFailed, order.Status)
		assert.NotEmpty(t, order.ErrorMessage)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cached duplicate is rejected without locking", func(t *testing.T) {
		service, mock, redisMock, done := newChargeOrderService(t)
		defer done()

		expectActivePhone(mock, 3)
		redisMock.ExpectGet("charge:dedupe:1:3:500.00").SetVal("7")
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()).
				AddRow(7, 1, 3, "500.00", int(models.ChargeOrderCompleted), "", 0, 42, time.Now(), time.Now()))
		mock.ExpectQuery("UPDATE charge_orders").
			WithArgs(sqlmock.AnyArg(), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(1))

		_, err := service.Submit(ctx, 1, 3, amount)

		var dup *DuplicateOrderError
		assert.ErrorAs(t, err, &dup)
		assert.Equal(t, int64(7), dup.OrderID)
		assert.Equal(t, 1, dup.RetryCount)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("duplicate found under lock bumps retry and commits", func(t *testing.T) {
		service, mock, redisMock, done := newChargeOrderService(t)
		defer done()

		expectActivePhone(mock, 3)
		redisMock.ExpectGet("charge:dedupe:1:3:500.00").RedisNil()
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, user_id, balance").
			WithArgs(int64(1)).
			WillReturnRows(newSellerRows("2000.00"))
		mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
			WillReturnRows(sqlmock.NewRows(chargeOrderColumns()).
				AddRow(7, 1, 3, "500.00", int(models.ChargeOrderCompleted), "", 0, 42, time.Now(), time.Now()))
		mock.ExpectQuery("UPDATE charge_orders").
			WithArgs(sqlmock.AnyArg(), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(2))
		mock.ExpectCommit()

		_, err := service.Submit(ctx, 1, 3, amount)

		var dup *DuplicateOrderError
		assert.ErrorAs(t, err, &dup)
		assert.Equal(t, int64(7), dup.OrderID)
		assert.Equal(t, 2, dup.RetryCount)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("amount below minimum", func(t *testing.T) {
		service, mock, _, done := newChargeOrderService(t)
		defer done()

		_, err := service.Submit(ctx, 1, 3, decimal.RequireFromString("0.50"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive phone number", func(t *testing.T) {
		service, mock, _, done := newChargeOrderService(t)
		defer done()

		mock.ExpectQuery("SELECT is_active FROM phone_numbers").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

		_, err := service.Submit(ctx, 1, 3, amount)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestChargeOrderService_ListBySeller(t *testing.T) {
	service, mock, _, done := newChargeOrderService(t)
	defer done()

	mock.ExpectQuery("SELECT id, seller_id, phone_number_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(chargeOrderColumns()).
			AddRow(9, 1, 3, "500.00", int(models.ChargeOrderCompleted), "", 0, 42, time.Now(), time.Now()).
			AddRow(8, 1, 4, "100.00", int(models.ChargeOrderFailed), "insufficient balance", 0, nil, time.Now(), time.Now()))

	orders, err := service.ListBySeller(context.Background(), 1)

	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, models.ChargeOrderCompleted, orders[0].Status)
	assert.Nil(t, orders[1].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
