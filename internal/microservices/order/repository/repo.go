package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

type CatalogRepositoryInterface interface {
	GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error)
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	UpsertMenuItem(ctx context.Context, item domain.MenuItem) error
	UpsertCustomer(ctx context.Context, c domain.Customer) error
}

// StockRepositoryInterface applies multi-ingredient reservations as one serializable unit.
type StockRepositoryInterface interface {
	Reserve(ctx context.Context, req domain.Requirements) error
	Release(ctx context.Context, req domain.Requirements) error
	Get(ctx context.Context, id string) (domain.IngredientStock, error)
	List(ctx context.Context) ([]domain.IngredientStock, error)
	Adjust(ctx context.Context, id string, delta decimal.Decimal) (domain.IngredientStock, error)
	Upsert(ctx context.Context, s domain.IngredientStock) error
}

type OrderRepositoryInterface interface {
	NextNumber(ctx context.Context) (int64, error)
	Insert(ctx context.Context, o domain.Order) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error)
	// UpdateStatus moves the order from -> to and appends the status log. Conflict when the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, changedBy string) error
	FinalizeOrders(ctx context.Context, ids []string, changedBy string) error
}

type TableRepositoryInterface interface {
	Get(ctx context.Context, id string) (domain.Table, error)
	List(ctx context.Context, status domain.TableStatus) ([]domain.Table, error)
	SetStatus(ctx context.Context, id string, status domain.TableStatus) error
	// AssignStaff sets the staff member only if the table has none.
	AssignStaff(ctx context.Context, id, staffID string) error
	AppendOrder(ctx context.Context, id string, seat int, occupant, orderID string) error
	RemoveOrder(ctx context.Context, id, orderID string) error
	// Vacate detaches the listed orders, clears seat occupants and moves the table to next.
	// It fails with a conflict when any other order is still attached.
	Vacate(ctx context.Context, id string, next domain.TableStatus, orderIDs []string) error
	Upsert(ctx context.Context, t domain.Table) error
}

type PaymentRepositoryInterface interface {
	Insert(ctx context.Context, p domain.Payment) error
	GetByOrder(ctx context.Context, orderID string) (domain.Payment, bool, error)
}

type ClosingRepositoryInterface interface {
	Insert(ctx context.Context, c domain.TableClosing) error
	Delete(ctx context.Context, id string) error
}

type Repository struct {
	CatalogRepo CatalogRepositoryInterface
	StockRepo   StockRepositoryInterface
	OrderRepo   OrderRepositoryInterface
	TableRepo   TableRepositoryInterface
	PaymentRepo PaymentRepositoryInterface
	ClosingRepo ClosingRepositoryInterface
}

func New(db *sql.DB) *Repository {
	return &Repository{
		CatalogRepo: NewCatalogRepository(db),
		StockRepo:   NewStockRepository(db),
		OrderRepo:   NewOrderRepository(db),
		TableRepo:   NewTableRepository(db),
		PaymentRepo: NewPaymentRepository(db),
		ClosingRepo: NewClosingRepository(db),
	}
}
