package memory

import (
	"context"
	"sort"
	"time"

	"restaurant-pos/internal/domain"
)

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.LineItem(nil), o.Items...)
	if o.Consumption != nil {
		c := make(domain.Requirements, len(o.Consumption))
		for k, v := range o.Consumption {
			c[k] = v
		}
		o.Consumption = c
	}
	return o
}

type orders struct{ s *Store }

func (r orders) NextNumber(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	return r.s.seq, nil
}

func (r orders) Insert(_ context.Context, o domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.ID]; ok {
		return domain.Conflict("order already exists", map[string]any{"order_id": o.ID})
	}
	for _, row := range r.s.orders {
		if row.order.Number == o.Number {
			return domain.Conflict("order number already used", map[string]any{"number": o.Number})
		}
	}
	r.s.orders[o.ID] = &orderRow{
		order: cloneOrder(o),
		log:   []domain.StatusChange{{OrderID: o.ID, Status: o.Status, ChangedBy: o.StaffID, ChangedAt: o.CreatedAt}},
	}
	return nil
}

func (r orders) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orders, id)
	return nil
}

func (r orders) Get(_ context.Context, id string) (domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.orders[id]
	if !ok {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	return cloneOrder(row.order), nil
}

func (r orders) List(_ context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	r.s.mu.RLock()
	var matched []domain.Order
	for _, row := range r.s.orders {
		if f.TableID != "" && row.order.TableID != f.TableID {
			continue
		}
		if f.Status != "" && row.order.Status != f.Status {
			continue
		}
		matched = append(matched, cloneOrder(row.order))
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Number > matched[j].Number })
	limit, page := f.Limit, f.Page
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []domain.Order{}, len(matched), nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (r orders) checkLocked(id string, from domain.OrderStatus) error {
	row, ok := r.s.orders[id]
	if !ok {
		return domain.OrderNotFound(id)
	}
	if row.order.Status != from {
		return domain.Conflict("order status changed concurrently",
			map[string]any{"order_id": id, "expected": string(from), "actual": string(row.order.Status)})
	}
	return nil
}

func (r orders) apply(id string, to domain.OrderStatus, changedBy string, now time.Time) {
	row := r.s.orders[id]
	row.order.Status = to
	row.order.UpdatedAt = now
	row.log = append(row.log, domain.StatusChange{OrderID: id, Status: to, ChangedBy: changedBy, ChangedAt: now})
}

func (r orders) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, changedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if err := r.checkLocked(id, from); err != nil {
		return err
	}
	r.apply(id, to, changedBy, now)
	return nil
}

func (r orders) FinalizeOrders(_ context.Context, ids []string, changedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if err := r.checkLocked(id, domain.StatusDelivered); err != nil {
			return err
		}
	}
	for _, id := range ids {
		r.apply(id, domain.StatusFinalized, changedBy, now)
	}
	return nil
}

type tables struct{ s *Store }

func (r tables) view(row *tableRow) domain.Table {
	t := row.table
	t.OrderIDs = make([]string, 0, len(row.attached))
	bySeat := map[int][]string{}
	for _, a := range row.attached {
		t.OrderIDs = append(t.OrderIDs, a.orderID)
		if a.seat > 0 {
			bySeat[a.seat] = append(bySeat[a.seat], a.orderID)
		}
	}
	numbers := make([]int, 0, len(row.seats))
	for n := range row.seats {
		numbers = append(numbers, n)
	}
	for n := range bySeat {
		if _, ok := row.seats[n]; !ok {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	t.Seats = make([]domain.Seat, 0, len(numbers))
	for _, n := range numbers {
		t.Seats = append(t.Seats, domain.Seat{Number: n, OccupantName: row.seats[n], OrderIDs: bySeat[n]})
	}
	return t
}

func (r tables) Get(_ context.Context, id string) (domain.Table, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.tables[id]
	if !ok {
		return domain.Table{}, domain.TableNotFound(id)
	}
	return r.view(row), nil
}

func (r tables) List(_ context.Context, status domain.TableStatus) ([]domain.Table, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Table, 0, len(r.s.tables))
	for _, row := range r.s.tables {
		if status != "" && row.table.Status != status {
			continue
		}
		out = append(out, r.view(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r tables) SetStatus(_ context.Context, id string, status domain.TableStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tables[id]
	if !ok {
		return domain.TableNotFound(id)
	}
	row.table.Status = status
	return nil
}

func (r tables) AssignStaff(_ context.Context, id, staffID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tables[id]
	if !ok {
		return domain.TableNotFound(id)
	}
	if row.table.StaffID == "" {
		row.table.StaffID = staffID
	}
	return nil
}

func (r tables) AppendOrder(_ context.Context, id string, seat int, occupant, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tables[id]
	if !ok {
		return domain.TableNotFound(id)
	}
	for _, a := range row.attached {
		if a.orderID == orderID {
			return domain.Conflict("order already attached", map[string]any{"table_id": id, "order_id": orderID})
		}
	}
	row.attached = append(row.attached, attachment{orderID: orderID, seat: seat})
	if seat > 0 {
		if occupant != "" {
			row.seats[seat] = occupant
		} else if _, ok := row.seats[seat]; !ok {
			row.seats[seat] = ""
		}
	}
	return nil
}

func (r tables) RemoveOrder(_ context.Context, id, orderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tables[id]
	if !ok {
		return domain.TableNotFound(id)
	}
	kept := row.attached[:0]
	for _, a := range row.attached {
		if a.orderID != orderID {
			kept = append(kept, a)
		}
	}
	row.attached = kept
	return nil
}

func (r tables) Vacate(_ context.Context, id string, next domain.TableStatus, orderIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tables[id]
	if !ok {
		return domain.TableNotFound(id)
	}
	listed := make(map[string]bool, len(orderIDs))
	for _, oid := range orderIDs {
		listed[oid] = true
	}
	var left int
	for _, a := range row.attached {
		if !listed[a.orderID] {
			left++
		}
	}
	if left > 0 {
		return domain.Conflict("table has orders attached", map[string]any{"table_id": id, "attached": left})
	}
	row.attached = nil
	for n := range row.seats {
		row.seats[n] = ""
	}
	row.table.Status = next
	return nil
}

func (r tables) Upsert(_ context.Context, t domain.Table) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.Status == "" {
		t.Status = domain.TableFree
	}
	if row, ok := r.s.tables[t.ID]; ok {
		row.table.Number, row.table.Capacity, row.table.Zone = t.Number, t.Capacity, t.Zone
		for _, s := range t.Seats {
			if _, ok := row.seats[s.Number]; !ok {
				row.seats[s.Number] = s.OccupantName
			}
		}
		return nil
	}
	row := &tableRow{table: t, seats: map[int]string{}}
	row.table.Seats, row.table.OrderIDs = nil, nil
	for _, s := range t.Seats {
		row.seats[s.Number] = s.OccupantName
	}
	r.s.tables[t.ID] = row
	return nil
}

type payments struct{ s *Store }

func (r payments) Insert(_ context.Context, p domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.OrderID]; ok {
		return domain.Conflict("order already paid", map[string]any{"order_id": p.OrderID})
	}
	r.s.payments[p.OrderID] = p
	return nil
}

func (r payments) GetByOrder(_ context.Context, orderID string) (domain.Payment, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[orderID]
	return p, ok, nil
}

type closings struct{ s *Store }

func (r closings) Insert(_ context.Context, c domain.TableClosing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.OrderIDs = append([]string(nil), c.OrderIDs...)
	r.s.closings[c.ID] = c
	return nil
}

func (r closings) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.closings, id)
	return nil
}
