package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepositoryInterface {
	return &OrderRepository{db: db}
}

func (or *OrderRepository) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := or.db.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to get next order number: %w", err)
	}
	return n, nil
}

func (or *OrderRepository) Insert(ctx context.Context, o domain.Order) error {
	consumption, err := json.Marshal(o.Consumption)
	if err != nil {
		return fmt.Errorf("failed to encode consumption: %w", err)
	}

	tx, err := or.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders
		    (id, order_number, kind, table_id, seat_number, customer_id, staff_id, delivery_address,
		     total, status, consumption, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		o.ID, o.Number, string(o.Kind), o.TableID, o.SeatNumber, o.CustomerID, o.StaffID, o.DeliveryAddress,
		o.Total, string(o.Status), string(consumption), o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range o.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, o.ID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice, item.Notes); err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", item.MenuItemID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`, o.ID, string(o.Status), o.StaffID, o.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes an order together with its items and log. Only used to undo a failed creation.
func (or *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := or.db.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

const orderColumns = `id, order_number, kind, table_id, seat_number, customer_id, staff_id,
	delivery_address, total, status, consumption, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		o           domain.Order
		kind        string
		status      string
		consumption []byte
	)
	err := row.Scan(&o.ID, &o.Number, &kind, &o.TableID, &o.SeatNumber, &o.CustomerID, &o.StaffID,
		&o.DeliveryAddress, &o.Total, &status, &consumption, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Kind = domain.OrderKind(kind)
	o.Status = domain.OrderStatus(status)
	if len(consumption) > 0 {
		if err := json.Unmarshal(consumption, &o.Consumption); err != nil {
			return domain.Order{}, fmt.Errorf("failed to decode consumption: %w", err)
		}
	}
	return o, nil
}

func (or *OrderRepository) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := or.db.QueryContext(ctx, `
		SELECT menu_item_id, name, quantity, unit_price, notes
		FROM order_items WHERE order_id=$1 ORDER BY id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Notes); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (or *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(or.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	if err := or.loadItems(ctx, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// List returns one page of orders, newest first, and the total number of matches.
func (or *OrderRepository) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.TableID != "" {
		args = append(args, f.TableID)
		where = append(where, fmt.Sprintf("table_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := or.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit, page := f.Limit, f.Page
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY order_number DESC LIMIT $%d OFFSET $%d`,
		orderColumns, cond, len(args)-1, len(args))

	rows, err := or.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if err := or.loadItems(ctx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// transition runs inside tx: lock the order, require from, write to and log it.
func transition(ctx context.Context, tx *sql.Tx, id string, from, to domain.OrderStatus, changedBy string) error {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if domain.OrderStatus(current) != from {
		return domain.Conflict("order status changed concurrently",
			map[string]any{"order_id": id, "expected": string(from), "actual": current})
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		id, string(to), now); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`, id, string(to), changedBy, now); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

func (or *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, changedBy string) error {
	tx, err := or.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := transition(ctx, tx, id, from, to, changedBy); err != nil {
		return err
	}
	return tx.Commit()
}

// FinalizeOrders moves every listed order from delivered to finalized, or none of them.
func (or *OrderRepository) FinalizeOrders(ctx context.Context, ids []string, changedBy string) error {
	tx, err := or.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if err := transition(ctx, tx, id, domain.StatusDelivered, domain.StatusFinalized, changedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}
