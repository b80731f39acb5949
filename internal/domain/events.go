package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventTableFinalized     EventType = "table.finalized"
)

// Event is what display clients and the kitchen receive. Delivery is best-effort.
type Event struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	OrderID     string          `json:"order_id,omitempty"`
	OrderNumber int64           `json:"order_number,omitempty"`
	Kind        OrderKind       `json:"kind,omitempty"`
	TableID     string          `json:"table_id,omitempty"`
	OldStatus   OrderStatus     `json:"old_status,omitempty"`
	NewStatus   OrderStatus     `json:"new_status,omitempty"`
	ChangedBy   string          `json:"changed_by,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Items       []LineItem      `json:"items,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
