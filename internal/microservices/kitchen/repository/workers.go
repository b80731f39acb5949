package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrWorkerOnline is returned when another process already holds the worker name.
var ErrWorkerOnline = errors.New("worker already online")

type WorkerRepositoryInterface interface {
	RegisterOrFail(ctx context.Context, name, wtype string) error
	Heartbeat(ctx context.Context, name string) error
	SetOffline(ctx context.Context, name string) error
	IncrementProcessed(ctx context.Context, name string) error
}

type WorkerRepository struct {
	db *sql.DB
}

func NewWorkerRepository(db *sql.DB) WorkerRepositoryInterface {
	return &WorkerRepository{db: db}
}

// RegisterOrFail marks name online, creating the row on first use.
func (r *WorkerRepository) RegisterOrFail(ctx context.Context, name, wtype string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM workers WHERE name=$1 FOR UPDATE`, name).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workers(name,type,status,last_seen) VALUES ($1,$2,'online',now())
		`, name, wtype); err != nil {
			return err
		}
	case err != nil:
		return err
	case status == "online":
		return fmt.Errorf("%w: %s", ErrWorkerOnline, name)
	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE workers SET type=$2, status='online', last_seen=now() WHERE name=$1
		`, name, wtype); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *WorkerRepository) Heartbeat(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workers SET last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *WorkerRepository) SetOffline(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workers SET status='offline', last_seen=now() WHERE name=$1`, name)
	return err
}

func (r *WorkerRepository) IncrementProcessed(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE workers SET orders_processed = orders_processed + 1, last_seen=now() WHERE name=$1
	`, name)
	return err
}
