package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
)

var tracer = otel.Tracer("restaurant-pos/order")

// EventEmitter hands events to the notification sink without waiting for delivery.
type EventEmitter interface {
	Emit(ev domain.Event)
	Drain(ctx context.Context) error
}

// ClosingArchiver keeps a copy of every table closing outside the database.
type ClosingArchiver interface {
	Archive(ctx context.Context, c domain.TableClosing) error
}

type Options struct {
	StoreTimeout    time.Duration
	FinalizeToDirty bool
	PageLimit       int
	Archiver        ClosingArchiver
	Now             func() time.Time
}

// OrderService coordinates catalog, stock, orders, tables and payments so that a
// failed operation never leaves stock or table state half-applied.
type OrderService struct {
	repo    *repository.Repository
	events  EventEmitter
	log     *logger.Logger
	opts    Options
	tables  *keyedMutex
	archive sync.WaitGroup
}

func NewOrderService(repo *repository.Repository, events EventEmitter, log *logger.Logger, opts Options) *OrderService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = 20
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &OrderService{
		repo:   repo,
		events: events,
		log:    log.Named("coordinator"),
		opts:   opts,
		tables: newKeyedMutex(),
	}
}

// call bounds one store operation by the store timeout. A missed deadline becomes StorageTimeout.
func call(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(cctx)
	if err == nil {
		return nil
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return domain.StorageTimeout(op, err)
	}
	return err
}

func fetch[T any](ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := call(ctx, timeout, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (s *OrderService) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return call(ctx, s.opts.StoreTimeout, op, fn)
}

func (s *OrderService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
	}
	span.End()
}

func (s *OrderService) emit(ev domain.Event) {
	if s.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.opts.Now()
	}
	s.events.Emit(ev)
}

// logFailure writes one line per failed operation; validation and conflicts at info, the rest at error.
func (s *OrderService) logFailure(ctx context.Context, action string, err error, fields map[string]any) {
	lg := s.log.Ctx(ctx)
	kind := domain.KindOf(err)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["kind"] = string(kind)
	if kind != "" && kind.Class() != domain.ClassInfrastructure {
		fields["reason"] = err.Error()
		lg.Info(action, fields)
		return
	}
	lg.Error(action, err, fields)
}

func (s *OrderService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.archive.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.events != nil {
		return s.events.Drain(ctx)
	}
	return nil
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.create",
		attribute.String("order.kind", string(req.Kind)), attribute.String("table.id", req.TableID))
	defer func() { endSpan(span, err) }()
	defer func() {
		if err != nil {
			s.logFailure(ctx, "order_create_failed", err, map[string]any{"table_id": req.TableID, "kind": string(req.Kind)})
		}
	}()

	if err := validateRequest(req); err != nil {
		return domain.Order{}, err
	}
	if req.Kind == domain.KindDelivery && req.DeliveryAddress == "" && req.CustomerID != "" {
		customer, err := fetch(ctx, s.opts.StoreTimeout, "customer.get", func(ctx context.Context) (domain.Customer, error) {
			return s.repo.CatalogRepo.GetCustomer(ctx, req.CustomerID)
		})
		if err != nil {
			return domain.Order{}, err
		}
		req.DeliveryAddress = customerAddress(customer)
	}
	menu, err := s.loadMenu(ctx, req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	draft, err := priceOrder(req, menu)
	if err != nil {
		return domain.Order{}, err
	}
	now := s.opts.Now()
	draft.ID = uuid.NewString()
	draft.Status = domain.StatusPending
	draft.CreatedAt, draft.UpdatedAt = now, now

	steps := []Step{
		&reserveStockStep{svc: s, req: draft.Consumption},
		&persistOrderStep{svc: s, order: &draft},
	}
	if draft.Kind == domain.KindLocal {
		unlock := s.tables.Lock(draft.TableID)
		defer unlock()

		table, err := fetch(ctx, s.opts.StoreTimeout, "table.get", func(ctx context.Context) (domain.Table, error) {
			return s.repo.TableRepo.Get(ctx, draft.TableID)
		})
		if err != nil {
			return domain.Order{}, err
		}
		if !table.Status.AcceptsOrders(req.ClaimReservation) {
			return domain.Order{}, domain.TableUnavailable(table.ID, table.Status)
		}
		steps = append(steps, &occupyTableStep{
			svc: s, table: table, orderID: draft.ID, seat: req.SeatNumber,
			occupant: req.OccupantName, staffID: draft.StaffID,
		})
	}

	if err := newSaga(s.log.Ctx(ctx), s.opts.StoreTimeout, steps...).Run(ctx); err != nil {
		return domain.Order{}, err
	}

	s.log.Ctx(ctx).Info("order_created", map[string]any{
		"order_id": draft.ID, "number": draft.Number, "kind": string(draft.Kind),
		"table_id": draft.TableID, "total": draft.Total.String(),
	})
	s.emit(domain.Event{
		Type: domain.EventOrderCreated, OrderID: draft.ID, OrderNumber: draft.Number, Kind: draft.Kind,
		TableID: draft.TableID, NewStatus: draft.Status, ChangedBy: draft.StaffID, Total: draft.Total,
		Items: draft.Items, OccurredAt: now,
	})
	return draft, nil
}

// GetOrder is the lookup behind every by-id operation. Order ids are UUIDs, so anything
// else cannot exist and never reaches the store.
func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	return fetch(ctx, s.opts.StoreTimeout, "order.get", func(ctx context.Context) (domain.Order, error) {
		return s.repo.OrderRepo.Get(ctx, id)
	})
}

func (s *OrderService) ListOrders(ctx context.Context, f domain.OrderFilter) (domain.OrderPage, error) {
	if f.Limit <= 0 {
		f.Limit = s.opts.PageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	var (
		orders []domain.Order
		total  int
	)
	err := s.call(ctx, "order.list", func(ctx context.Context) error {
		var err error
		orders, total, err = s.repo.OrderRepo.List(ctx, f)
		return err
	})
	if err != nil {
		return domain.OrderPage{}, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	pages := (total + f.Limit - 1) / f.Limit
	return domain.OrderPage{Orders: orders, TotalPages: pages}, nil
}
