package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/domain"
)

type TableRepository struct {
	db *sql.DB
}

func NewTableRepository(db *sql.DB) TableRepositoryInterface {
	return &TableRepository{db: db}
}

const tableColumns = `id, table_number, capacity, zone, status, staff_id`

func scanTable(row interface{ Scan(...any) error }) (domain.Table, error) {
	var (
		t      domain.Table
		status string
	)
	if err := row.Scan(&t.ID, &t.Number, &t.Capacity, &t.Zone, &status, &t.StaffID); err != nil {
		return domain.Table{}, err
	}
	t.Status = domain.TableStatus(status)
	return t, nil
}

// loadAttachments fills seats and the order list. Orders attached to a seat are also
// listed on that seat.
func (r *TableRepository) loadAttachments(ctx context.Context, t *domain.Table) error {
	seats := map[int]*domain.Seat{}
	var order []int

	rows, err := r.db.QueryContext(ctx, `
		SELECT seat_number, occupant_name FROM table_seats WHERE table_id=$1 ORDER BY seat_number
	`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to get seats: %w", err)
	}
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.Number, &s.OccupantName); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan seat: %w", err)
		}
		seats[s.Number] = &s
		order = append(order, s.Number)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT order_id, seat_number FROM table_orders WHERE table_id=$1 ORDER BY attached_at, order_id
	`, t.ID)
	if err != nil {
		return fmt.Errorf("failed to get table orders: %w", err)
	}
	defer rows.Close()
	t.OrderIDs = []string{}
	for rows.Next() {
		var (
			orderID string
			seat    int
		)
		if err := rows.Scan(&orderID, &seat); err != nil {
			return fmt.Errorf("failed to scan table order: %w", err)
		}
		t.OrderIDs = append(t.OrderIDs, orderID)
		if seat > 0 {
			s, ok := seats[seat]
			if !ok {
				s = &domain.Seat{Number: seat}
				seats[seat] = s
				order = append(order, seat)
			}
			s.OrderIDs = append(s.OrderIDs, orderID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	t.Seats = make([]domain.Seat, 0, len(order))
	for _, n := range order {
		t.Seats = append(t.Seats, *seats[n])
	}
	return nil
}

func (r *TableRepository) Get(ctx context.Context, id string) (domain.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, domain.TableNotFound(id)
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to get table: %w", err)
	}
	if err := r.loadAttachments(ctx, &t); err != nil {
		return domain.Table{}, err
	}
	return t, nil
}

func (r *TableRepository) List(ctx context.Context, status domain.TableStatus) ([]domain.Table, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tableColumns+` FROM restaurant_tables
		WHERE ($1 = '' OR status = $1)
		ORDER BY table_number
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var tables []domain.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range tables {
		if err := r.loadAttachments(ctx, &tables[i]); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (r *TableRepository) SetStatus(ctx context.Context, id string, status domain.TableStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE restaurant_tables SET status=$2, updated_at=now() WHERE id=$1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to set table status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.TableNotFound(id)
	}
	return nil
}

func (r *TableRepository) AssignStaff(ctx context.Context, id, staffID string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE restaurant_tables SET staff_id=$2, updated_at=now() WHERE id=$1 AND staff_id=''
	`, id, staffID); err != nil {
		return fmt.Errorf("failed to assign staff: %w", err)
	}
	return nil
}

// AppendOrder inserts one row per order, so concurrent appends never overwrite each other.
// It takes the same row lock as Vacate.
func (r *TableRepository) AppendOrder(ctx context.Context, id string, seat int, occupant, orderID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM restaurant_tables WHERE id=$1 FOR UPDATE`, id); err != nil {
		return fmt.Errorf("failed to lock table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO table_orders (table_id, order_id, seat_number) VALUES ($1, $2, $3)
	`, id, orderID, seat); err != nil {
		return fmt.Errorf("failed to attach order: %w", err)
	}
	if seat > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO table_seats (table_id, seat_number, occupant_name) VALUES ($1, $2, $3)
			ON CONFLICT (table_id, seat_number) DO UPDATE
			SET occupant_name = CASE WHEN EXCLUDED.occupant_name <> '' THEN EXCLUDED.occupant_name
			                         ELSE table_seats.occupant_name END
		`, id, seat, occupant); err != nil {
			return fmt.Errorf("failed to update seat: %w", err)
		}
	}
	return tx.Commit()
}

func (r *TableRepository) RemoveOrder(ctx context.Context, id, orderID string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM table_orders WHERE table_id=$1 AND order_id=$2
	`, id, orderID); err != nil {
		return fmt.Errorf("failed to detach order: %w", err)
	}
	return nil
}

// Vacate locks the table row. An order attached concurrently either commits first and
// makes the vacate fail, or waits and lands on the vacated table.
func (r *TableRepository) Vacate(ctx context.Context, id string, next domain.TableStatus, orderIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM restaurant_tables WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TableNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock table: %w", err)
	}

	for _, orderID := range orderIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM table_orders WHERE table_id=$1 AND order_id=$2
		`, id, orderID); err != nil {
			return fmt.Errorf("failed to detach order: %w", err)
		}
	}
	var left int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM table_orders WHERE table_id=$1`, id).Scan(&left); err != nil {
		return fmt.Errorf("failed to count table orders: %w", err)
	}
	if left > 0 {
		return domain.Conflict("table has orders attached", map[string]any{"table_id": id, "attached": left})
	}

	if _, err := tx.ExecContext(ctx, `UPDATE table_seats SET occupant_name='' WHERE table_id=$1`, id); err != nil {
		return fmt.Errorf("failed to clear seats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE restaurant_tables SET status=$2, updated_at=now() WHERE id=$1
	`, id, string(next)); err != nil {
		return fmt.Errorf("failed to set table status: %w", err)
	}
	return tx.Commit()
}

func (r *TableRepository) Upsert(ctx context.Context, t domain.Table) error {
	status := t.Status
	if status == "" {
		status = domain.TableFree
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO restaurant_tables (id, table_number, capacity, zone, status, staff_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET table_number = EXCLUDED.table_number, capacity = EXCLUDED.capacity, zone = EXCLUDED.zone
	`, t.ID, t.Number, t.Capacity, t.Zone, string(status), t.StaffID); err != nil {
		return fmt.Errorf("failed to upsert table %s: %w", t.ID, err)
	}
	for _, s := range t.Seats {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO table_seats (table_id, seat_number, occupant_name) VALUES ($1, $2, $3)
			ON CONFLICT (table_id, seat_number) DO NOTHING
		`, t.ID, s.Number, s.OccupantName); err != nil {
			return fmt.Errorf("failed to upsert seat %d: %w", s.Number, err)
		}
	}
	return tx.Commit()
}
