// Package memory is a process-local implementation of the order repositories,
// used by `fulfillment.store: memory` and by the coordinator tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

type ingredientCell struct {
	mu    sync.Mutex
	stock domain.IngredientStock
}

type orderRow struct {
	order domain.Order
	log   []domain.StatusChange
}

type tableRow struct {
	table    domain.Table
	seats    map[int]string
	attached []attachment
}

type attachment struct {
	orderID string
	seat    int
}

// Store keeps every aggregate in maps. Ingredient quantities have their own
// per-ingredient locks; everything else is guarded by mu.
type Store struct {
	mu        sync.RWMutex
	menu      map[string]domain.MenuItem
	customers map[string]domain.Customer
	orders    map[string]*orderRow
	tables    map[string]*tableRow
	payments  map[string]domain.Payment
	closings  map[string]domain.TableClosing
	seq       int64

	stockMu sync.RWMutex
	stock   map[string]*ingredientCell
}

func New() *Store {
	return &Store{
		menu:      map[string]domain.MenuItem{},
		customers: map[string]domain.Customer{},
		orders:    map[string]*orderRow{},
		tables:    map[string]*tableRow{},
		payments:  map[string]domain.Payment{},
		closings:  map[string]domain.TableClosing{},
		stock:     map[string]*ingredientCell{},
	}
}

// Repository exposes the store through the repository interfaces.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		CatalogRepo: catalog{s},
		StockRepo:   stock{s},
		OrderRepo:   orders{s},
		TableRepo:   tables{s},
		PaymentRepo: payments{s},
		ClosingRepo: closings{s},
	}
}

// Closings returns every recorded table closing.
func (s *Store) Closings() []domain.TableClosing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TableClosing, 0, len(s.closings))
	for _, c := range s.closings {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.Before(out[j].ClosedAt) })
	return out
}

// Timeline returns the status history of an order.
func (s *Store) Timeline(id string) ([]domain.StatusChange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	return append([]domain.StatusChange(nil), row.log...), true
}

type catalog struct{ s *Store }

func (c catalog) GetMenuItem(_ context.Context, id string) (domain.MenuItem, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	item, ok := c.s.menu[id]
	if !ok {
		return domain.MenuItem{}, domain.MenuItemNotFound(id)
	}
	item.Ingredients = append([]domain.IngredientRequirement(nil), item.Ingredients...)
	return item, nil
}

func (c catalog) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	cu, ok := c.s.customers[id]
	if !ok {
		return domain.Customer{}, domain.CustomerNotFound(id)
	}
	return cu, nil
}

func (c catalog) UpsertMenuItem(_ context.Context, item domain.MenuItem) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item.Ingredients = append([]domain.IngredientRequirement(nil), item.Ingredients...)
	c.s.menu[item.ID] = item
	return nil
}

func (c catalog) UpsertCustomer(_ context.Context, cu domain.Customer) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.customers[cu.ID] = cu
	return nil
}

type stock struct{ s *Store }

// cells resolves the cells of ids, which must already be sorted.
func (st stock) cells(ids []string) ([]*ingredientCell, error) {
	st.s.stockMu.RLock()
	defer st.s.stockMu.RUnlock()
	out := make([]*ingredientCell, 0, len(ids))
	for _, id := range ids {
		c, ok := st.s.stock[id]
		if !ok {
			return nil, domain.IngredientNotFound(id)
		}
		out = append(out, c)
	}
	return out, nil
}

func lockAll(cells []*ingredientCell) func() {
	for _, c := range cells {
		c.mu.Lock()
	}
	return func() {
		for i := len(cells) - 1; i >= 0; i-- {
			cells[i].mu.Unlock()
		}
	}
}

func (st stock) Reserve(ctx context.Context, req domain.Requirements) error {
	ids := req.SortedIDs()
	cells, err := st.cells(ids)
	if err != nil {
		return err
	}
	unlock := lockAll(cells)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	for i, id := range ids {
		if cells[i].stock.QuantityOnHand.LessThan(req[id]) {
			return domain.InsufficientStock(id, req[id], cells[i].stock.QuantityOnHand)
		}
	}
	now := time.Now().UTC()
	for i, id := range ids {
		cells[i].stock.QuantityOnHand = cells[i].stock.QuantityOnHand.Sub(req[id])
		cells[i].stock.Version++
		cells[i].stock.UpdatedAt = now
	}
	return nil
}

func (st stock) Release(_ context.Context, req domain.Requirements) error {
	ids := req.SortedIDs()
	cells, err := st.cells(ids)
	if err != nil {
		return err
	}
	unlock := lockAll(cells)
	defer unlock()

	now := time.Now().UTC()
	for i, id := range ids {
		cells[i].stock.QuantityOnHand = cells[i].stock.QuantityOnHand.Add(req[id])
		cells[i].stock.Version++
		cells[i].stock.UpdatedAt = now
	}
	return nil
}

func (st stock) Get(_ context.Context, id string) (domain.IngredientStock, error) {
	cells, err := st.cells([]string{id})
	if err != nil {
		return domain.IngredientStock{}, err
	}
	cells[0].mu.Lock()
	defer cells[0].mu.Unlock()
	return cells[0].stock, nil
}

func (st stock) List(_ context.Context) ([]domain.IngredientStock, error) {
	st.s.stockMu.RLock()
	cells := make([]*ingredientCell, 0, len(st.s.stock))
	for _, c := range st.s.stock {
		cells = append(cells, c)
	}
	st.s.stockMu.RUnlock()

	out := make([]domain.IngredientStock, 0, len(cells))
	for _, c := range cells {
		c.mu.Lock()
		out = append(out, c.stock)
		c.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (st stock) Adjust(_ context.Context, id string, delta decimal.Decimal) (domain.IngredientStock, error) {
	cells, err := st.cells([]string{id})
	if err != nil {
		return domain.IngredientStock{}, err
	}
	c := cells[0]
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.stock.QuantityOnHand.Add(delta)
	if next.IsNegative() {
		return domain.IngredientStock{}, domain.InsufficientStock(id, delta.Neg(), c.stock.QuantityOnHand)
	}
	c.stock.QuantityOnHand = next
	c.stock.Version++
	c.stock.UpdatedAt = time.Now().UTC()
	return c.stock, nil
}

func (st stock) Upsert(_ context.Context, in domain.IngredientStock) error {
	st.s.stockMu.Lock()
	defer st.s.stockMu.Unlock()
	if c, ok := st.s.stock[in.ID]; ok {
		c.mu.Lock()
		in.Version = c.stock.Version + 1
		c.stock = in
		c.mu.Unlock()
		return nil
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}
	st.s.stock[in.ID] = &ingredientCell{stock: in}
	return nil
}
