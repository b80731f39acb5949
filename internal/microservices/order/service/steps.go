package service

import (
	"context"
	"time"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
)

// Step is one unit of a multi-store operation. Compensate undoes a successful Execute.
// A failing Execute must leave nothing behind.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

type saga struct {
	steps   []Step
	log     *logger.Logger
	timeout time.Duration
}

func newSaga(log *logger.Logger, timeout time.Duration, steps ...Step) *saga {
	return &saga{steps: steps, log: log, timeout: timeout}
}

// Run executes the steps in order. On the first failure every completed step is
// compensated in reverse order and the original error is returned.
func (sg *saga) Run(ctx context.Context) error {
	done := make([]Step, 0, len(sg.steps))
	for _, step := range sg.steps {
		sg.log.Debug("saga_step_started", map[string]any{"step": step.Name()})
		if err := step.Execute(ctx); err != nil {
			sg.log.Debug("saga_step_failed", map[string]any{"step": step.Name(), "reason": err.Error()})
			sg.rollback(ctx, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

// rollback runs detached from ctx so a cancelled or timed-out request still restores state.
func (sg *saga) rollback(ctx context.Context, done []Step) {
	base := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		cctx, cancel := context.WithTimeout(base, sg.timeout)
		err := step.Compensate(cctx)
		cancel()
		if err != nil {
			sg.log.Error("saga_compensation_failed", err, map[string]any{"step": step.Name(), "severity": "critical"})
			continue
		}
		sg.log.Info("saga_step_compensated", map[string]any{"step": step.Name()})
	}
}

type reserveStockStep struct {
	svc *OrderService
	req domain.Requirements
}

func (s *reserveStockStep) Name() string { return "reserve_stock" }

func (s *reserveStockStep) Execute(ctx context.Context) error {
	return s.svc.call(ctx, "stock.reserve", func(ctx context.Context) error {
		return s.svc.repo.StockRepo.Reserve(ctx, s.req)
	})
}

func (s *reserveStockStep) Compensate(ctx context.Context) error {
	return s.svc.repo.StockRepo.Release(ctx, s.req)
}

type persistOrderStep struct {
	svc   *OrderService
	order *domain.Order
}

func (s *persistOrderStep) Name() string { return "persist_order" }

func (s *persistOrderStep) Execute(ctx context.Context) error {
	n, err := fetch(ctx, s.svc.opts.StoreTimeout, "order.next_number", s.svc.repo.OrderRepo.NextNumber)
	if err != nil {
		return err
	}
	s.order.Number = n
	return s.svc.call(ctx, "order.insert", func(ctx context.Context) error {
		return s.svc.repo.OrderRepo.Insert(ctx, *s.order)
	})
}

func (s *persistOrderStep) Compensate(ctx context.Context) error {
	return s.svc.repo.OrderRepo.Delete(ctx, s.order.ID)
}

// occupyTableStep attaches the order and moves the table to occupied.
type occupyTableStep struct {
	svc      *OrderService
	table    domain.Table
	orderID  string
	seat     int
	occupant string
	staffID  string

	attached bool
	moved    bool
}

func (s *occupyTableStep) Name() string { return "occupy_table" }

func (s *occupyTableStep) Execute(ctx context.Context) error {
	repo := s.svc.repo.TableRepo
	err := s.svc.call(ctx, "table.append_order", func(ctx context.Context) error {
		return repo.AppendOrder(ctx, s.table.ID, s.seat, s.occupant, s.orderID)
	})
	if err != nil {
		return err
	}
	s.attached = true

	if s.table.Status != domain.TableOccupied {
		err = s.svc.call(ctx, "table.set_status", func(ctx context.Context) error {
			return repo.SetStatus(ctx, s.table.ID, domain.TableOccupied)
		})
		if err != nil {
			s.undo(ctx)
			return err
		}
		s.moved = true
	}

	if s.staffID != "" && s.table.StaffID == "" {
		err = s.svc.call(ctx, "table.assign_staff", func(ctx context.Context) error {
			return repo.AssignStaff(ctx, s.table.ID, s.staffID)
		})
		if err != nil {
			s.undo(ctx)
			return err
		}
	}
	return nil
}

func (s *occupyTableStep) undo(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.svc.opts.StoreTimeout)
	defer cancel()
	if err := s.Compensate(cctx); err != nil {
		s.svc.log.Ctx(ctx).Error("saga_compensation_failed", err, map[string]any{"step": s.Name(), "severity": "critical"})
	}
}

func (s *occupyTableStep) Compensate(ctx context.Context) error {
	repo := s.svc.repo.TableRepo
	if s.moved {
		if err := repo.SetStatus(ctx, s.table.ID, s.table.Status); err != nil {
			return err
		}
		s.moved = false
	}
	if s.attached {
		if err := repo.RemoveOrder(ctx, s.table.ID, s.orderID); err != nil {
			return err
		}
		s.attached = false
	}
	return nil
}

type recordClosingStep struct {
	svc     *OrderService
	closing domain.TableClosing
}

func (s *recordClosingStep) Name() string { return "record_closing" }

func (s *recordClosingStep) Execute(ctx context.Context) error {
	return s.svc.call(ctx, "closing.insert", func(ctx context.Context) error {
		return s.svc.repo.ClosingRepo.Insert(ctx, s.closing)
	})
}

func (s *recordClosingStep) Compensate(ctx context.Context) error {
	return s.svc.repo.ClosingRepo.Delete(ctx, s.closing.ID)
}

// finalizeOrdersStep is irreversible, so it runs after every step that can still be undone.
type finalizeOrdersStep struct {
	svc       *OrderService
	orderIDs  []string
	changedBy string
}

func (s *finalizeOrdersStep) Name() string { return "finalize_orders" }

func (s *finalizeOrdersStep) Execute(ctx context.Context) error {
	return s.svc.call(ctx, "order.finalize", func(ctx context.Context) error {
		return s.svc.repo.OrderRepo.FinalizeOrders(ctx, s.orderIDs, s.changedBy)
	})
}

func (s *finalizeOrdersStep) Compensate(context.Context) error { return nil }

// releaseStockStep returns a cancelled order's ingredients to stock.
type releaseStockStep struct {
	svc *OrderService
	req domain.Requirements
}

func (s *releaseStockStep) Name() string { return "release_stock" }

func (s *releaseStockStep) Execute(ctx context.Context) error {
	return s.svc.call(ctx, "stock.release", func(ctx context.Context) error {
		return s.svc.repo.StockRepo.Release(ctx, s.req)
	})
}

func (s *releaseStockStep) Compensate(ctx context.Context) error {
	return s.svc.repo.StockRepo.Reserve(ctx, s.req)
}

// detachTableStep removes the order from its table and frees the table once nothing
// active is left on it. Must run under the table lock.
type detachTableStep struct {
	svc   *OrderService
	order domain.Order

	occupant string
	detached bool
	vacated  bool
}

func (s *detachTableStep) Name() string { return "detach_table" }

func (s *detachTableStep) Execute(ctx context.Context) error {
	svc, tableID := s.svc, s.order.TableID
	table, err := svc.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	for _, seat := range table.Seats {
		if seat.Number == s.order.SeatNumber {
			s.occupant = seat.OccupantName
		}
	}

	err = svc.call(ctx, "table.remove_order", func(ctx context.Context) error {
		return svc.repo.TableRepo.RemoveOrder(ctx, tableID, s.order.ID)
	})
	if err != nil {
		return err
	}
	s.detached = true

	if table.Status != domain.TableOccupied {
		return nil
	}
	rest := make([]string, 0, len(table.OrderIDs))
	for _, oid := range table.OrderIDs {
		if oid != s.order.ID {
			rest = append(rest, oid)
		}
	}
	table.OrderIDs = rest
	active, err := svc.activeOrders(ctx, table)
	if err != nil {
		s.undo(ctx)
		return err
	}
	if len(active) > 0 {
		return nil
	}
	err = svc.call(ctx, "table.vacate", func(ctx context.Context) error {
		return svc.repo.TableRepo.Vacate(ctx, tableID, domain.TableFree, rest)
	})
	if err != nil {
		s.undo(ctx)
		return err
	}
	s.vacated = true
	svc.log.Ctx(ctx).Info("table_released", map[string]any{"table_id": tableID, "reason": "no active orders"})
	return nil
}

func (s *detachTableStep) undo(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.svc.opts.StoreTimeout)
	defer cancel()
	if err := s.Compensate(cctx); err != nil {
		s.svc.log.Ctx(ctx).Error("saga_compensation_failed", err, map[string]any{"step": s.Name(), "severity": "critical"})
	}
}

func (s *detachTableStep) Compensate(ctx context.Context) error {
	repo := s.svc.repo.TableRepo
	if s.detached {
		if err := repo.AppendOrder(ctx, s.order.TableID, s.order.SeatNumber, s.occupant, s.order.ID); err != nil {
			return err
		}
		s.detached = false
	}
	if s.vacated {
		if err := repo.SetStatus(ctx, s.order.TableID, domain.TableOccupied); err != nil {
			return err
		}
		s.vacated = false
	}
	return nil
}

// cancelOrderStep writes the cancelled status. It is the last step of a cancel, so
// nothing after it needs undoing.
type cancelOrderStep struct {
	svc       *OrderService
	orderID   string
	from      domain.OrderStatus
	changedBy string
}

func (s *cancelOrderStep) Name() string { return "cancel_order" }

func (s *cancelOrderStep) Execute(ctx context.Context) error {
	return s.svc.call(ctx, "order.update_status", func(ctx context.Context) error {
		return s.svc.repo.OrderRepo.UpdateStatus(ctx, s.orderID, s.from, domain.StatusCancelled, s.changedBy)
	})
}

func (s *cancelOrderStep) Compensate(context.Context) error { return nil }
