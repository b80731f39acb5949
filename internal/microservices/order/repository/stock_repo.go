package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

type StockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) StockRepositoryInterface {
	return &StockRepository{db: db}
}

// Reserve locks every ingredient row in id order, checks all of them and only then
// decrements, all inside one transaction.
func (r *StockRepository) Reserve(ctx context.Context, req domain.Requirements) error {
	if len(req) == 0 {
		return nil
	}
	ids := req.SortedIDs()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		var onHand decimal.Decimal
		err := tx.QueryRowContext(ctx,
			`SELECT quantity_on_hand FROM ingredients WHERE id=$1 FOR UPDATE`, id).Scan(&onHand)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IngredientNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock ingredient %s: %w", id, err)
		}
		if onHand.LessThan(req[id]) {
			return domain.InsufficientStock(id, req[id], onHand)
		}
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE ingredients
			SET quantity_on_hand = quantity_on_hand - $2, version = version + 1, updated_at = now()
			WHERE id=$1
		`, id, req[id]); err != nil {
			return fmt.Errorf("failed to decrement ingredient %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

// Release gives back a previous reservation.
func (r *StockRepository) Release(ctx context.Context, req domain.Requirements) error {
	if len(req) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range req.SortedIDs() {
		res, err := tx.ExecContext(ctx, `
			UPDATE ingredients
			SET quantity_on_hand = quantity_on_hand + $2, version = version + 1, updated_at = now()
			WHERE id=$1
		`, id, req[id])
		if err != nil {
			return fmt.Errorf("failed to restore ingredient %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.IngredientNotFound(id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit release: %w", err)
	}
	return nil
}

const stockColumns = `id, name, unit, quantity_on_hand, unit_cost, version, updated_at`

func scanStock(row interface{ Scan(...any) error }) (domain.IngredientStock, error) {
	var s domain.IngredientStock
	err := row.Scan(&s.ID, &s.Name, &s.Unit, &s.QuantityOnHand, &s.UnitCost, &s.Version, &s.UpdatedAt)
	return s, err
}

func (r *StockRepository) Get(ctx context.Context, id string) (domain.IngredientStock, error) {
	s, err := scanStock(r.db.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM ingredients WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IngredientStock{}, domain.IngredientNotFound(id)
	}
	if err != nil {
		return domain.IngredientStock{}, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return s, nil
}

func (r *StockRepository) List(ctx context.Context) ([]domain.IngredientStock, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+stockColumns+` FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var out []domain.IngredientStock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Adjust applies a manual correction. The result can never go below zero.
func (r *StockRepository) Adjust(ctx context.Context, id string, delta decimal.Decimal) (domain.IngredientStock, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.IngredientStock{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s, err := scanStock(tx.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM ingredients WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IngredientStock{}, domain.IngredientNotFound(id)
	}
	if err != nil {
		return domain.IngredientStock{}, fmt.Errorf("failed to lock ingredient: %w", err)
	}
	next := s.QuantityOnHand.Add(delta)
	if next.IsNegative() {
		return domain.IngredientStock{}, domain.InsufficientStock(id, delta.Neg(), s.QuantityOnHand)
	}

	if err := tx.QueryRowContext(ctx, `
		UPDATE ingredients SET quantity_on_hand=$2, version = version + 1, updated_at = now()
		WHERE id=$1
		RETURNING version, updated_at
	`, id, next).Scan(&s.Version, &s.UpdatedAt); err != nil {
		return domain.IngredientStock{}, fmt.Errorf("failed to adjust ingredient: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.IngredientStock{}, fmt.Errorf("failed to commit adjustment: %w", err)
	}
	s.QuantityOnHand = next
	return s, nil
}

func (r *StockRepository) Upsert(ctx context.Context, s domain.IngredientStock) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, unit, quantity_on_hand, unit_cost)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, unit = EXCLUDED.unit,
		    quantity_on_hand = EXCLUDED.quantity_on_hand, unit_cost = EXCLUDED.unit_cost,
		    version = ingredients.version + 1, updated_at = now()
	`, s.ID, s.Name, s.Unit, s.QuantityOnHand, s.UnitCost)
	if err != nil {
		return fmt.Errorf("failed to upsert ingredient %s: %w", s.ID, err)
	}
	return nil
}
