package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/domain"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepositoryInterface {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	var item domain.MenuItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category_id, unit_price, available FROM menu_items WHERE id=$1
	`, id).Scan(&item.ID, &item.Name, &item.CategoryID, &item.UnitPrice, &item.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MenuItem{}, domain.MenuItemNotFound(id)
	}
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("failed to get menu item: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ingredient_id, quantity_per_unit, unit
		FROM menu_item_ingredients WHERE menu_item_id=$1 ORDER BY ingredient_id
	`, id)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("failed to get recipe: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var req domain.IngredientRequirement
		if err := rows.Scan(&req.IngredientID, &req.QuantityPerUnit, &req.Unit); err != nil {
			return domain.MenuItem{}, fmt.Errorf("failed to scan recipe: %w", err)
		}
		item.Ingredients = append(item.Ingredients, req)
	}
	return item, rows.Err()
}

func (r *CatalogRepository) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, street, number, complement, district, city, state, zip_code
		FROM customers WHERE id=$1
	`, id).Scan(&c.ID, &c.Name, &c.Street, &c.Number, &c.Complement, &c.District, &c.City, &c.State, &c.ZipCode)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.CustomerNotFound(id)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// UpsertMenuItem replaces the item and its whole recipe.
func (r *CatalogRepository) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, category_id, unit_price, available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category_id = EXCLUDED.category_id,
		    unit_price = EXCLUDED.unit_price, available = EXCLUDED.available
	`, item.ID, item.Name, item.CategoryID, item.UnitPrice, item.Available); err != nil {
		return fmt.Errorf("failed to upsert menu item %s: %w", item.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM menu_item_ingredients WHERE menu_item_id=$1`, item.ID); err != nil {
		return fmt.Errorf("failed to clear recipe of %s: %w", item.ID, err)
	}
	for _, req := range item.Ingredients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO menu_item_ingredients (menu_item_id, ingredient_id, quantity_per_unit, unit)
			VALUES ($1, $2, $3, $4)
		`, item.ID, req.IngredientID, req.QuantityPerUnit, req.Unit); err != nil {
			return fmt.Errorf("failed to insert recipe line %s/%s: %w", item.ID, req.IngredientID, err)
		}
	}
	return tx.Commit()
}

func (r *CatalogRepository) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, street, number, complement, district, city, state, zip_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, street = EXCLUDED.street, number = EXCLUDED.number,
		    complement = EXCLUDED.complement, district = EXCLUDED.district, city = EXCLUDED.city,
		    state = EXCLUDED.state, zip_code = EXCLUDED.zip_code
	`, c.ID, c.Name, c.Street, c.Number, c.Complement, c.District, c.City, c.State, c.ZipCode)
	if err != nil {
		return fmt.Errorf("failed to upsert customer %s: %w", c.ID, err)
	}
	return nil
}
