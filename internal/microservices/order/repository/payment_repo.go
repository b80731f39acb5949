package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-pos/internal/domain"
)

const uniqueViolation = "23505"

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepositoryInterface {
	return &PaymentRepository{db: db}
}

// Insert records the single payment of an order. A second payment is a Conflict.
func (r *PaymentRepository) Insert(ctx context.Context, p domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method, amount_paid, change_due, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.OrderID, string(p.Method), p.AmountPaid, p.Change, p.PaidAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.Conflict("order already paid", map[string]any{"order_id": p.OrderID})
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByOrder(ctx context.Context, orderID string) (domain.Payment, bool, error) {
	var (
		p      domain.Payment
		method string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, method, amount_paid, change_due, paid_at FROM payments WHERE order_id=$1
	`, orderID).Scan(&p.ID, &p.OrderID, &method, &p.AmountPaid, &p.Change, &p.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, false, nil
	}
	if err != nil {
		return domain.Payment{}, false, fmt.Errorf("failed to get payment: %w", err)
	}
	p.Method = domain.PaymentMethod(method)
	return p, true, nil
}
