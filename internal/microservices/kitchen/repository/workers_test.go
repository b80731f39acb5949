package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectWorker = `SELECT status FROM workers WHERE name=$1 FOR UPDATE`

func TestRegisterCreatesUnknownWorker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWorker)).WithArgs("oven-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO workers(name,type,status,last_seen)`)).
		WithArgs("oven-1", "local").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewWorkerRepository(db).RegisterOrFail(context.Background(), "oven-1", "local"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsWorkerAlreadyOnline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWorker)).WithArgs("oven-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("online"))
	mock.ExpectRollback()

	err = NewWorkerRepository(db).RegisterOrFail(context.Background(), "oven-1", "local")
	require.ErrorIs(t, err, ErrWorkerOnline)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRevivesOfflineWorker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectWorker)).WithArgs("oven-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("offline"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE workers SET type=$2, status='online'`)).
		WithArgs("oven-1", "delivery").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewWorkerRepository(db).RegisterOrFail(context.Background(), "oven-1", "delivery"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedCounterAndOffline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`orders_processed = orders_processed + 1`)).WithArgs("oven-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET status='offline'`)).WithArgs("oven-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := New(db).WorkerRepo
	require.NoError(t, repo.IncrementProcessed(context.Background(), "oven-1"))
	require.NoError(t, repo.SetOffline(context.Background(), "oven-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
