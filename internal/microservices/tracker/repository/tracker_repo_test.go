package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

func TestGetOrderView(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id=$1`)).WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "kind", "table_id", "status", "updated_at"}).
			AddRow("o-1", 17, "local", "t5", "preparing", at))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id=$1`)).WithArgs("o-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "kind", "table_id", "status", "updated_at"}))

	repo := NewTrackerRepo(db)
	v, ok, err := repo.GetOrderView(context.Background(), "o-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(17), v.OrderNumber)
	assert.Equal(t, domain.StatusPreparing, v.Status)
	assert.Equal(t, domain.KindLocal, v.Kind)

	_, ok, err = repo.GetOrderView(context.Background(), "o-2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderTimelineKeepsLogOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_status_log WHERE order_id=$1`)).WithArgs("o-1", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"status", "changed_by", "changed_at", "notes"}).
			AddRow("pending", "waiter-1", at, "").
			AddRow("preparing", "oven-1", at.Add(time.Minute), ""))

	got, err := NewTrackerRepo(db).GetOrderTimeline(context.Background(), "o-1", 50, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.StatusPending, got[0].Status)
	assert.Equal(t, "oven-1", got[1].ChangedBy)
	assert.Equal(t, "o-1", got[1].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWorkers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM workers ORDER BY name`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "status", "last_seen", "orders_processed"}).
			AddRow("oven-1", "generic", "online", time.Now(), 12))

	got, err := NewTrackerRepo(db).ListWorkers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].OrdersProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
