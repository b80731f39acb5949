package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

const lockTable = `SELECT status FROM restaurant_tables WHERE id=$1 FOR UPDATE`

func TestVacateDetachesOnlyListedOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTable)).WithArgs("t5").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("occupied"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM table_orders WHERE table_id=$1 AND order_id=$2`)).
		WithArgs("t5", "o-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM table_orders WHERE table_id=$1 AND order_id=$2`)).
		WithArgs("t5", "o-2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM table_orders WHERE table_id=$1`)).WithArgs("t5").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE table_seats SET occupant_name=''`)).WithArgs("t5").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE restaurant_tables SET status=$2`)).WithArgs("t5", "dirty").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewTableRepository(db).Vacate(context.Background(), "t5", domain.TableDirty, []string{"o-1", "o-2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVacateKeepsTableWhenAnotherOrderWasAttached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTable)).WithArgs("t5").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("occupied"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM table_orders WHERE table_id=$1 AND order_id=$2`)).
		WithArgs("t5", "o-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM table_orders WHERE table_id=$1`)).WithArgs("t5").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err = NewTableRepository(db).Vacate(context.Background(), "t5", domain.TableFree, []string{"o-1"})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVacateUnknownTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTable)).WithArgs("t99").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err = NewTableRepository(db).Vacate(context.Background(), "t99", domain.TableFree, nil)
	require.ErrorIs(t, err, domain.ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendOrderLocksTableRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT id FROM restaurant_tables WHERE id=$1 FOR UPDATE`)).WithArgs("t5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO table_orders").WithArgs("t5", "o-3", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO table_seats").WithArgs("t5", 2, "Bia").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewTableRepository(db).AppendOrder(context.Background(), "t5", 2, "Bia", "o-3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
