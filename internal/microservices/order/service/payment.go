package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"restaurant-pos/internal/domain"
)

// RecordPayment settles one order. Only ready or delivered orders can be paid, and only once.
func (s *OrderService) RecordPayment(ctx context.Context, orderID string, req domain.PaymentRequest) (p domain.Payment, err error) {
	ctx, span := s.startSpan(ctx, "order.record_payment", attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()
	defer func() {
		if err != nil {
			s.logFailure(ctx, "payment_failed", err, map[string]any{"order_id": orderID, "method": string(req.Method)})
		}
	}()

	if !req.Method.Valid() {
		return domain.Payment{}, domain.InvalidOrderRequest("unknown payment method " + string(req.Method))
	}
	if !req.AmountPaid.IsPositive() {
		return domain.Payment{}, domain.InvalidOrderRequest("amount paid must be positive")
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	switch order.Status {
	case domain.StatusReady, domain.StatusDelivered:
	case domain.StatusPending, domain.StatusPreparing:
		return domain.Payment{}, domain.OrderNotCompleted(order.TableID, order.ID, order.Status)
	default:
		return domain.Payment{}, domain.Conflict("order can no longer be paid",
			map[string]any{"order_id": order.ID, "status": string(order.Status)})
	}
	if req.AmountPaid.LessThan(order.Total) {
		return domain.Payment{}, domain.InsufficientPayment(order.ID, order.Total, req.AmountPaid)
	}

	p = domain.Payment{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		Method:     req.Method,
		AmountPaid: req.AmountPaid,
		Change:     req.AmountPaid.Sub(order.Total),
		PaidAt:     s.opts.Now(),
	}
	err = s.call(ctx, "payment.insert", func(ctx context.Context) error {
		return s.repo.PaymentRepo.Insert(ctx, p)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	s.log.Ctx(ctx).Info("payment_recorded", map[string]any{
		"order_id": order.ID, "method": string(p.Method), "amount": p.AmountPaid.String(), "change": p.Change.String(),
	})
	return p, nil
}
