package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"restaurant-pos/internal/domain"
)

type ClosingRepository struct {
	db *sql.DB
}

func NewClosingRepository(db *sql.DB) ClosingRepositoryInterface {
	return &ClosingRepository{db: db}
}

func (r *ClosingRepository) Insert(ctx context.Context, c domain.TableClosing) error {
	ids, err := json.Marshal(c.OrderIDs)
	if err != nil {
		return fmt.Errorf("failed to encode order ids: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO table_closings (id, table_id, table_number, staff_id, order_ids, total, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.TableID, c.TableNumber, c.StaffID, string(ids), c.Total, c.ClosedAt); err != nil {
		return fmt.Errorf("failed to insert table closing: %w", err)
	}
	return nil
}

func (r *ClosingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM table_closings WHERE id=$1`, id); err != nil {
		return fmt.Errorf("failed to delete table closing: %w", err)
	}
	return nil
}
