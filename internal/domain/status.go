package domain

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusFinalized OrderStatus = "finalized"
	StatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusDelivered},
	StatusDelivered: {StatusFinalized},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusFinalized, StatusCancelled:
		return st, true
	}
	return "", false
}

// CanTransitionTo reports whether next is the single permitted successor of s
// (or Cancelled from Pending).
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal: no further forward transition is expected from the kitchen.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFinalized || s == StatusCancelled
}

// IsActive reports whether the order still holds its table.
func (s OrderStatus) IsActive() bool {
	return s != StatusFinalized && s != StatusCancelled
}

type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableReserved TableStatus = "reserved"
	TableOccupied TableStatus = "occupied"
	TableDirty    TableStatus = "dirty"
)

var tableTransitions = map[TableStatus][]TableStatus{
	TableFree:     {TableOccupied, TableReserved},
	TableReserved: {TableOccupied, TableFree},
	TableOccupied: {TableFree, TableDirty},
	TableDirty:    {TableFree},
}

func (s TableStatus) CanTransitionTo(next TableStatus) bool {
	for _, allowed := range tableTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsOrders reports whether a new order may be placed on the table.
// A reserved table only accepts the order that claims the reservation.
func (s TableStatus) AcceptsOrders(claimReservation bool) bool {
	switch s {
	case TableFree, TableOccupied:
		return true
	case TableReserved:
		return claimReservation
	}
	return false
}
