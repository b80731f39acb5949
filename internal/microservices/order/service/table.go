package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"restaurant-pos/internal/domain"
)

func (s *OrderService) GetTable(ctx context.Context, id string) (domain.Table, error) {
	return fetch(ctx, s.opts.StoreTimeout, "table.get", func(ctx context.Context) (domain.Table, error) {
		return s.repo.TableRepo.Get(ctx, id)
	})
}

func (s *OrderService) ListTables(ctx context.Context, status domain.TableStatus) ([]domain.Table, error) {
	tables, err := fetch(ctx, s.opts.StoreTimeout, "table.list", func(ctx context.Context) ([]domain.Table, error) {
		return s.repo.TableRepo.List(ctx, status)
	})
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []domain.Table{}
	}
	return tables, nil
}

// FinalizeTable closes an occupied table: every active order must be delivered and paid.
// The orders move to finalized, a closing is recorded and the table is vacated.
func (s *OrderService) FinalizeTable(ctx context.Context, id, staffID string) (closing domain.TableClosing, err error) {
	ctx, span := s.startSpan(ctx, "table.finalize", attribute.String("table.id", id))
	defer func() { endSpan(span, err) }()
	defer func() {
		if err != nil {
			s.logFailure(ctx, "table_finalize_failed", err, map[string]any{"table_id": id})
		}
	}()

	unlock := s.tables.Lock(id)
	defer unlock()

	table, err := s.GetTable(ctx, id)
	if err != nil {
		return domain.TableClosing{}, err
	}
	if table.Status != domain.TableOccupied {
		return domain.TableClosing{}, domain.TableUnavailable(id, table.Status)
	}
	active, err := s.activeOrders(ctx, table)
	if err != nil {
		return domain.TableClosing{}, err
	}

	next := domain.TableFree
	if s.opts.FinalizeToDirty {
		next = domain.TableDirty
	}
	if len(active) == 0 {
		// A previous finalize that failed after the orders were finalized lands here.
		if err := s.vacate(ctx, id, next, table.OrderIDs); err != nil {
			return domain.TableClosing{}, err
		}
		s.log.Ctx(ctx).Warn("table_vacated_without_orders", map[string]any{"table_id": id, "status": string(next)})
		return domain.TableClosing{TableID: id, TableNumber: table.Number, StaffID: table.StaffID,
			OrderIDs: []string{}, Total: decimal.Zero, ClosedAt: s.opts.Now()}, nil
	}

	ids := make([]string, 0, len(active))
	total := decimal.Zero
	for _, o := range active {
		if o.Status != domain.StatusDelivered {
			return domain.TableClosing{}, domain.OrderNotCompleted(id, o.ID, o.Status)
		}
		if err := s.requirePayment(ctx, o.ID); err != nil {
			return domain.TableClosing{}, err
		}
		ids = append(ids, o.ID)
		total = total.Add(o.Total)
	}

	if staffID == "" {
		staffID = table.StaffID
	}
	closing = domain.TableClosing{
		ID:          uuid.NewString(),
		TableID:     id,
		TableNumber: table.Number,
		StaffID:     staffID,
		OrderIDs:    ids,
		Total:       total,
		ClosedAt:    s.opts.Now(),
	}
	err = newSaga(s.log.Ctx(ctx), s.opts.StoreTimeout,
		&recordClosingStep{svc: s, closing: closing},
		&finalizeOrdersStep{svc: s, orderIDs: ids, changedBy: staffID},
	).Run(ctx)
	if err != nil {
		return domain.TableClosing{}, err
	}
	for _, o := range active {
		s.emit(domain.Event{
			Type: domain.EventOrderStatusChanged, OrderID: o.ID, OrderNumber: o.Number, Kind: o.Kind,
			TableID: id, OldStatus: domain.StatusDelivered, NewStatus: domain.StatusFinalized, ChangedBy: staffID,
			Total: o.Total, OccurredAt: closing.ClosedAt,
		})
	}
	if err := s.vacate(ctx, id, next, table.OrderIDs); err != nil {
		s.log.Ctx(ctx).Error("table_vacate_failed", err, map[string]any{
			"table_id": id, "closing_id": closing.ID, "severity": "critical",
		})
		return domain.TableClosing{}, err
	}

	s.log.Ctx(ctx).Info("table_finalized", map[string]any{
		"table_id": id, "closing_id": closing.ID, "orders": len(ids), "total": total.String(), "status": string(next),
	})
	s.emit(domain.Event{Type: domain.EventTableFinalized, TableID: id, ChangedBy: staffID, Total: total, OccurredAt: closing.ClosedAt})
	s.archiveClosing(ctx, closing)
	return closing, nil
}

// vacate detaches exactly the orders read under the table lock.
func (s *OrderService) vacate(ctx context.Context, id string, next domain.TableStatus, orderIDs []string) error {
	return s.call(ctx, "table.vacate", func(ctx context.Context) error {
		return s.repo.TableRepo.Vacate(ctx, id, next, orderIDs)
	})
}

func (s *OrderService) archiveClosing(ctx context.Context, c domain.TableClosing) {
	if s.opts.Archiver == nil {
		return
	}
	lg := s.log.Ctx(ctx)
	base := context.WithoutCancel(ctx)
	s.archive.Add(1)
	go func() {
		defer s.archive.Done()
		actx, cancel := context.WithTimeout(base, 4*s.opts.StoreTimeout)
		defer cancel()
		if err := s.opts.Archiver.Archive(actx, c); err != nil {
			lg.Error("closing_archive_failed", err, map[string]any{"closing_id": c.ID, "table_id": c.TableID})
			return
		}
		lg.Debug("closing_archived", map[string]any{"closing_id": c.ID})
	}()
}

func (s *OrderService) ReserveTable(ctx context.Context, id string) (domain.Table, error) {
	return s.moveTable(ctx, id, domain.TableFree, domain.TableReserved)
}

func (s *OrderService) ReleaseReservation(ctx context.Context, id string) (domain.Table, error) {
	return s.moveTable(ctx, id, domain.TableReserved, domain.TableFree)
}

func (s *OrderService) MarkTableClean(ctx context.Context, id string) (domain.Table, error) {
	return s.moveTable(ctx, id, domain.TableDirty, domain.TableFree)
}

func (s *OrderService) moveTable(ctx context.Context, id string, from, to domain.TableStatus) (domain.Table, error) {
	unlock := s.tables.Lock(id)
	defer unlock()

	table, err := s.GetTable(ctx, id)
	if err != nil {
		return domain.Table{}, err
	}
	if table.Status != from {
		err = domain.TableUnavailable(id, table.Status)
		s.logFailure(ctx, "table_status_change_failed", err, map[string]any{"table_id": id, "to": string(to)})
		return domain.Table{}, err
	}
	err = s.call(ctx, "table.set_status", func(ctx context.Context) error {
		return s.repo.TableRepo.SetStatus(ctx, id, to)
	})
	if err != nil {
		s.logFailure(ctx, "table_status_change_failed", err, map[string]any{"table_id": id, "to": string(to)})
		return domain.Table{}, err
	}
	table.Status = to
	s.log.Ctx(ctx).Info("table_status_changed", map[string]any{"table_id": id, "from": string(from), "to": string(to)})
	return table, nil
}
