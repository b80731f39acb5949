package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/order/repository/memory"
)

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type capturedEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *capturedEvents) Emit(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capturedEvents) Drain(context.Context) error { return nil }

func (c *capturedEvents) ofType(t domain.EventType) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store  *memory.Store
	repo   *repository.Repository
	events *capturedEvents
	svc    *OrderService
}

// newFixture seeds a small restaurant: tomato/dough/cheese in stock, a pizza and a salad on the
// menu, table t5 free, t6 reserved, t7 dirty, and one delivery customer.
func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	store := memory.New()
	repo := store.Repository()
	ctx := context.Background()

	for _, st := range []domain.IngredientStock{
		{ID: "tomato", Name: "Tomate", Unit: "kg", QuantityOnHand: dec("100")},
		{ID: "dough", Name: "Massa", Unit: "kg", QuantityOnHand: dec("10")},
		{ID: "cheese", Name: "Queijo", Unit: "kg", QuantityOnHand: dec("5")},
	} {
		require.NoError(t, repo.StockRepo.Upsert(ctx, st))
	}
	for _, m := range []domain.MenuItem{
		{ID: "pizza", Name: "Pizza", UnitPrice: dec("42.50"), Available: true, Ingredients: []domain.IngredientRequirement{
			{IngredientID: "dough", QuantityPerUnit: dec("0.5"), Unit: "kg"},
			{IngredientID: "cheese", QuantityPerUnit: dec("0.25"), Unit: "kg"},
			{IngredientID: "tomato", QuantityPerUnit: dec("0.2"), Unit: "kg"},
		}},
		{ID: "sauce", Name: "Molho", UnitPrice: dec("9.90"), Available: true, Ingredients: []domain.IngredientRequirement{
			{IngredientID: "tomato", QuantityPerUnit: dec("10"), Unit: "kg"},
		}},
		{ID: "bruschetta", Name: "Bruschetta", UnitPrice: dec("12.00"), Available: true, Ingredients: []domain.IngredientRequirement{
			{IngredientID: "tomato", QuantityPerUnit: dec("5"), Unit: "kg"},
		}},
		{ID: "salad", Name: "Salada", UnitPrice: dec("19.99"), Available: true, Ingredients: []domain.IngredientRequirement{
			{IngredientID: "tomato", QuantityPerUnit: dec("0.3"), Unit: "kg"},
		}},
		{ID: "soup", Name: "Sopa", UnitPrice: dec("15.00"), Available: false},
	} {
		require.NoError(t, repo.CatalogRepo.UpsertMenuItem(ctx, m))
	}
	for _, tb := range []domain.Table{
		{ID: "t5", Number: 5, Capacity: 4, Zone: "salao", Status: domain.TableFree,
			Seats: []domain.Seat{{Number: 1}, {Number: 2}, {Number: 3}, {Number: 4}}},
		{ID: "t6", Number: 6, Capacity: 2, Zone: "varanda", Status: domain.TableReserved},
		{ID: "t7", Number: 7, Capacity: 2, Zone: "varanda", Status: domain.TableDirty},
	} {
		require.NoError(t, repo.TableRepo.Upsert(ctx, tb))
	}
	require.NoError(t, repo.CatalogRepo.UpsertCustomer(ctx, domain.Customer{
		ID: "c1", Name: "Ana", Street: "Rua das Flores", Number: "12", District: "Centro",
		City: "Recife", State: "PE", ZipCode: "50000-000",
	}))

	o := Options{StoreTimeout: time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	events := &capturedEvents{}
	return &fixture{
		store:  store,
		repo:   repo,
		events: events,
		svc:    NewOrderService(repo, events, logger.Discard(), o),
	}
}

func (f *fixture) stock(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	st, err := f.repo.StockRepo.Get(context.Background(), id)
	require.NoError(t, err)
	return st.QuantityOnHand
}

func (f *fixture) table(t *testing.T, id string) domain.Table {
	t.Helper()
	tb, err := f.repo.TableRepo.Get(context.Background(), id)
	require.NoError(t, err)
	return tb
}

func localOrder(table string, items ...domain.CreateOrderItem) domain.CreateOrderRequest {
	return domain.CreateOrderRequest{Kind: domain.KindLocal, TableID: table, StaffID: "waiter-1", Items: items}
}

func item(id string, qty int) domain.CreateOrderItem {
	return domain.CreateOrderItem{MenuItemID: id, Quantity: qty}
}

// advance walks an order through the given statuses.
func (f *fixture) advance(t *testing.T, id string, steps ...domain.OrderStatus) {
	t.Helper()
	for _, st := range steps {
		_, err := f.svc.UpdateStatus(context.Background(), id, st, "kitchen")
		require.NoError(t, err)
	}
}

func (f *fixture) deliverAndPay(t *testing.T, o domain.Order) {
	t.Helper()
	f.advance(t, o.ID, domain.StatusPreparing, domain.StatusReady, domain.StatusDelivered)
	_, err := f.svc.RecordPayment(context.Background(), o.ID, domain.PaymentRequest{Method: domain.MethodCard, AmountPaid: o.Total})
	require.NoError(t, err)
}

// failingTables fails the chosen table operation.
type failingTables struct {
	repository.TableRepositoryInterface
	failSetStatus bool
	failVacate    bool
}

func (f *failingTables) SetStatus(ctx context.Context, id string, st domain.TableStatus) error {
	if f.failSetStatus {
		return errBoom
	}
	return f.TableRepositoryInterface.SetStatus(ctx, id, st)
}

func (f *failingTables) Vacate(ctx context.Context, id string, next domain.TableStatus, orderIDs []string) error {
	if f.failVacate {
		return errBoom
	}
	return f.TableRepositoryInterface.Vacate(ctx, id, next, orderIDs)
}

type failingOrders struct {
	repository.OrderRepositoryInterface
	failInsert       bool
	failFinalize     bool
	failUpdateStatus bool
}

func (f *failingOrders) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, changedBy string) error {
	if f.failUpdateStatus {
		return errBoom
	}
	return f.OrderRepositoryInterface.UpdateStatus(ctx, id, from, to, changedBy)
}

func (f *failingOrders) Insert(ctx context.Context, o domain.Order) error {
	if f.failInsert {
		return errBoom
	}
	return f.OrderRepositoryInterface.Insert(ctx, o)
}

func (f *failingOrders) FinalizeOrders(ctx context.Context, ids []string, changedBy string) error {
	if f.failFinalize {
		return errBoom
	}
	return f.OrderRepositoryInterface.FinalizeOrders(ctx, ids, changedBy)
}

// failingStock fails the next failReleases calls to Release.
type failingStock struct {
	repository.StockRepositoryInterface
	failReleases int
}

func (f *failingStock) Release(ctx context.Context, req domain.Requirements) error {
	if f.failReleases > 0 {
		f.failReleases--
		return errBoom
	}
	return f.StockRepositoryInterface.Release(ctx, req)
}

// slowStock blocks Reserve until the context gives up.
type slowStock struct {
	repository.StockRepositoryInterface
}

func (s slowStock) Reserve(ctx context.Context, _ domain.Requirements) error {
	<-ctx.Done()
	return ctx.Err()
}

type archiveFunc func(ctx context.Context, c domain.TableClosing) error

func (f archiveFunc) Archive(ctx context.Context, c domain.TableClosing) error { return f(ctx, c) }
