package service

import (
	"context"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

// OrderServiceInterface is the fulfillment coordinator as seen by the HTTP layer and the kitchen.
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) (domain.OrderPage, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, changedBy string) (domain.Order, error)
	CancelOrder(ctx context.Context, id, changedBy string) (domain.Order, error)
	RecordPayment(ctx context.Context, orderID string, req domain.PaymentRequest) (domain.Payment, error)

	GetTable(ctx context.Context, id string) (domain.Table, error)
	ListTables(ctx context.Context, status domain.TableStatus) ([]domain.Table, error)
	FinalizeTable(ctx context.Context, id, staffID string) (domain.TableClosing, error)
	ReserveTable(ctx context.Context, id string) (domain.Table, error)
	ReleaseReservation(ctx context.Context, id string) (domain.Table, error)
	MarkTableClean(ctx context.Context, id string) (domain.Table, error)

	ListStock(ctx context.Context) ([]domain.IngredientStock, error)
	AdjustStock(ctx context.Context, id string, delta decimal.Decimal) (domain.IngredientStock, error)

	// Drain waits for background notifications and archive uploads.
	Drain(ctx context.Context) error
}

type Service struct {
	OrderService OrderServiceInterface
}

func New(orders OrderServiceInterface) *Service {
	return &Service{OrderService: orders}
}
