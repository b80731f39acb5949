package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

const lockOrder = `SELECT status FROM orders WHERE id=$1 FOR UPDATE`

func TestInsertOrderWritesItemsAndLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	o := domain.Order{
		ID: "8b0c8c0e-6f43-4b1e-9a57-1f1f2d3c4b5a", Number: 7, Kind: domain.KindLocal, TableID: "t5",
		StaffID: "waiter-1", Total: qty("85.00"), Status: domain.StatusPending,
		Items:       []domain.LineItem{{MenuItemID: "pizza", Name: "Pizza", Quantity: 2, UnitPrice: qty("42.50")}},
		Consumption: domain.Requirements{"dough": qty("1")},
		CreatedAt:   now, UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.Number, "local", "t5", 0, "", "waiter-1", "", sqlmock.AnyArg(), "pending",
			`{"dough":"1"}`, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(o.ID, "pizza", "Pizza", 2, sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_status_log").
		WithArgs(o.ID, "pending", "waiter-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, NewOrderRepository(db).Insert(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRequiresExpectedStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrder)).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("preparing"))
	mock.ExpectRollback()

	err = NewOrderRepository(db).UpdateStatus(context.Background(), "o-1", domain.StatusPending, domain.StatusCancelled, "waiter-1")
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusAppendsLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrder)).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status=$2`)).WithArgs("o-1", "preparing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_status_log").WithArgs("o-1", "preparing", "kitchen", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = NewOrderRepository(db).UpdateStatus(context.Background(), "o-1", domain.StatusPending, domain.StatusPreparing, "kitchen")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrdersIsAllOrNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockOrder)).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("delivered"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status=$2`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_status_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(lockOrder)).WithArgs("b").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err = NewOrderRepository(db).FinalizeOrders(context.Background(), []string{"a", "b"}, "waiter-1")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersBuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders WHERE table_id=$1 AND status=$2`)).
		WithArgs("t5", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY order_number DESC LIMIT $3 OFFSET $4`)).
		WithArgs("t5", "pending", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "kind", "table_id", "seat_number", "customer_id",
			"staff_id", "delivery_address", "total", "status", "consumption", "created_at", "updated_at"}).
			AddRow("o-1", 1, "local", "t5", 0, "", "w", "", "19.99", "pending", []byte(`{"tomato":"0.3"}`), now, now))
	mock.ExpectQuery("FROM order_items WHERE order_id=").WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"menu_item_id", "name", "quantity", "unit_price", "notes"}).
			AddRow("salad", "Salada", 1, "19.99", ""))

	orders, total, err := NewOrderRepository(db).List(context.Background(),
		domain.OrderFilter{TableID: "t5", Status: domain.StatusPending, Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Consumption["tomato"].Equal(qty("0.3")))
	require.Len(t, orders[0].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicatePaymentIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO payments").WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPaymentRepository(db).Insert(context.Background(), domain.Payment{ID: "p", OrderID: "o-1", Method: domain.MethodCash})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentLookupWithoutRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM payments WHERE order_id=").WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "method", "amount_paid", "change_due", "paid_at"}))

	_, ok, err := NewPaymentRepository(db).GetByOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
