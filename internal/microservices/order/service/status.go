package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"restaurant-pos/internal/domain"
)

// UpdateStatus moves an order one step forward along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, changedBy string) (order domain.Order, err error) {
	if next == domain.StatusCancelled {
		return s.CancelOrder(ctx, id, changedBy)
	}
	ctx, span := s.startSpan(ctx, "order.update_status",
		attribute.String("order.id", id), attribute.String("order.next_status", string(next)))
	defer func() { endSpan(span, err) }()
	defer func() {
		if err != nil {
			s.logFailure(ctx, "order_status_update_failed", err, map[string]any{"order_id": id, "to": string(next)})
		}
	}()

	if _, ok := domain.ParseOrderStatus(string(next)); !ok {
		return domain.Order{}, domain.InvalidOrderRequest("unknown status " + string(next))
	}
	order, err = s.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	from := order.Status
	if !from.CanTransitionTo(next) {
		return domain.Order{}, domain.InvalidStatusTransition(id, from, next)
	}
	if next == domain.StatusFinalized {
		if order.Kind == domain.KindLocal {
			e := domain.InvalidStatusTransition(id, from, next)
			e.Message = "local orders are finalized with their table"
			return domain.Order{}, e
		}
		if err := s.requirePayment(ctx, id); err != nil {
			return domain.Order{}, err
		}
	}

	err = s.call(ctx, "order.update_status", func(ctx context.Context) error {
		return s.repo.OrderRepo.UpdateStatus(ctx, id, from, next, changedBy)
	})
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = next
	order.UpdatedAt = s.opts.Now()

	s.log.Ctx(ctx).Info("order_status_changed", map[string]any{
		"order_id": id, "from": string(from), "to": string(next), "changed_by": changedBy,
	})
	s.emit(domain.Event{
		Type: domain.EventOrderStatusChanged, OrderID: id, OrderNumber: order.Number, Kind: order.Kind,
		TableID: order.TableID, OldStatus: from, NewStatus: next, ChangedBy: changedBy, Total: order.Total,
	})
	return order, nil
}

func (s *OrderService) requirePayment(ctx context.Context, orderID string) error {
	var paid bool
	err := s.call(ctx, "payment.get", func(ctx context.Context) error {
		var err error
		_, paid, err = s.repo.PaymentRepo.GetByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return err
	}
	if !paid {
		return domain.PaymentRequired(orderID)
	}
	return nil
}

// CancelOrder cancels a pending order, returns its ingredients to stock and detaches it from its table.
// A table left with no active orders goes back to free.
func (s *OrderService) CancelOrder(ctx context.Context, id, changedBy string) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.cancel", attribute.String("order.id", id))
	defer func() { endSpan(span, err) }()
	defer func() {
		if err != nil {
			s.logFailure(ctx, "order_cancel_failed", err, map[string]any{"order_id": id})
		}
	}()

	order, err = s.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Kind == domain.KindLocal && order.TableID != "" {
		unlock := s.tables.Lock(order.TableID)
		defer unlock()
		if order, err = s.GetOrder(ctx, id); err != nil {
			return domain.Order{}, err
		}
	}
	if !order.Status.CanTransitionTo(domain.StatusCancelled) {
		return domain.Order{}, domain.InvalidStatusTransition(id, order.Status, domain.StatusCancelled)
	}

	// The status is written last. Until then a failure leaves the order pending with its
	// stock and table restored.
	var steps []Step
	if len(order.Consumption) > 0 {
		steps = append(steps, &releaseStockStep{svc: s, req: order.Consumption})
	}
	if order.Kind == domain.KindLocal && order.TableID != "" {
		steps = append(steps, &detachTableStep{svc: s, order: order})
	}
	steps = append(steps, &cancelOrderStep{svc: s, orderID: id, from: order.Status, changedBy: changedBy})
	if err = newSaga(s.log.Ctx(ctx), s.opts.StoreTimeout, steps...).Run(ctx); err != nil {
		return domain.Order{}, err
	}
	from := order.Status
	order.Status = domain.StatusCancelled
	order.UpdatedAt = s.opts.Now()

	s.log.Ctx(ctx).Info("order_cancelled", map[string]any{"order_id": id, "changed_by": changedBy})
	s.emit(domain.Event{
		Type: domain.EventOrderStatusChanged, OrderID: id, OrderNumber: order.Number, Kind: order.Kind,
		TableID: order.TableID, OldStatus: from, NewStatus: domain.StatusCancelled, ChangedBy: changedBy,
		Total: order.Total,
	})
	return order, nil
}

// activeOrders loads the table's orders that are neither finalized nor cancelled.
func (s *OrderService) activeOrders(ctx context.Context, table domain.Table) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(table.OrderIDs))
	for _, oid := range table.OrderIDs {
		o, err := s.GetOrder(ctx, oid)
		if err != nil {
			return nil, err
		}
		if o.Status.IsActive() {
			out = append(out, o)
		}
	}
	return out, nil
}
