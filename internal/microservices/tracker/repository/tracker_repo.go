package repository

import (
	"context"
	"database/sql"
	"errors"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
)

// TrackerRepoInterface reads what the order service and the kitchen write.
type TrackerRepoInterface interface {
	GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error)
	GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusChange, error)
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
}

type TrackerRepo struct {
	db *sql.DB
}

func NewTrackerRepo(db *sql.DB) *TrackerRepo { return &TrackerRepo{db: db} }

func (r *TrackerRepo) GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error) {
	var (
		v      models.OrderView
		kind   string
		status string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, order_number, kind, table_id, status, updated_at
FROM orders WHERE id=$1
`, id).Scan(&v.OrderID, &v.OrderNumber, &kind, &v.TableID, &status, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OrderView{}, false, nil
	}
	if err != nil {
		return models.OrderView{}, false, err
	}
	v.Kind = domain.OrderKind(kind)
	v.Status = domain.OrderStatus(status)
	return v, true, nil
}

func (r *TrackerRepo) GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT status, changed_by, changed_at, notes
FROM order_status_log WHERE order_id=$1
ORDER BY changed_at ASC, id ASC
LIMIT $2 OFFSET $3
`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StatusChange, 0)
	for rows.Next() {
		ch := domain.StatusChange{OrderID: id}
		var status string
		if err := rows.Scan(&status, &ch.ChangedBy, &ch.ChangedAt, &ch.Notes); err != nil {
			return nil, err
		}
		ch.Status = domain.OrderStatus(status)
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (r *TrackerRepo) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, type, status, last_seen, orders_processed
FROM workers ORDER BY name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Worker, 0)
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(&w.Name, &w.Type, &w.Status, &w.LastSeen, &w.OrdersProcessed); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
