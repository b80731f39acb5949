package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	KindLocal    OrderKind = "local"
	KindDelivery OrderKind = "delivery"
)

// MenuItem is a sellable product or recipe. Ingredients lists what one unit consumes.
type MenuItem struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	UnitPrice   decimal.Decimal         `json:"unit_price"`
	Available   bool                    `json:"available"`
	CategoryID  string                  `json:"category_id,omitempty"`
	Ingredients []IngredientRequirement `json:"ingredients"`
}

type IngredientRequirement struct {
	IngredientID    string          `json:"ingredient_id"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	Unit            string          `json:"unit"`
}

type IngredientStock struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Version        int64           `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Requirements is the consolidated ingredient consumption of one order, keyed by ingredient id.
type Requirements map[string]decimal.Decimal

// Add accumulates qty for an ingredient.
func (r Requirements) Add(ingredientID string, qty decimal.Decimal) {
	if cur, ok := r[ingredientID]; ok {
		r[ingredientID] = cur.Add(qty)
		return
	}
	r[ingredientID] = qty
}

// SortedIDs returns the ingredient ids in lock order.
func (r Requirements) SortedIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

type Order struct {
	ID              string          `json:"id"`
	Number          int64           `json:"number"`
	Kind            OrderKind       `json:"kind"`
	TableID         string          `json:"table_id,omitempty"`
	SeatNumber      int             `json:"seat_number,omitempty"`
	CustomerID      string          `json:"customer_id,omitempty"`
	StaffID         string          `json:"staff_id"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Items           []LineItem      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	Consumption     Requirements    `json:"consumption,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LineItem keeps the unit price captured when the order was created.
type LineItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Notes      string          `json:"notes,omitempty"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderFilter struct {
	TableID string
	Status  OrderStatus
	Page    int
	Limit   int
}

type Table struct {
	ID       string      `json:"id"`
	Number   int         `json:"number"`
	Capacity int         `json:"capacity"`
	Zone     string      `json:"zone"`
	Status   TableStatus `json:"status"`
	StaffID  string      `json:"staff_id,omitempty"`
	Seats    []Seat      `json:"seats"`
	OrderIDs []string    `json:"order_ids"`
}

type Seat struct {
	Number       int      `json:"number"`
	OccupantName string   `json:"occupant_name,omitempty"`
	OrderIDs     []string `json:"order_ids,omitempty"`
}

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
	MethodPix  PaymentMethod = "pix"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodPix:
		return true
	}
	return false
}

type Payment struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	Method     PaymentMethod   `json:"method"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Change     decimal.Decimal `json:"change"`
	PaidAt     time.Time       `json:"paid_at"`
}

// TableClosing records a finalized table cycle.
type TableClosing struct {
	ID          string          `json:"id"`
	TableID     string          `json:"table_id"`
	TableNumber int             `json:"table_number"`
	StaffID     string          `json:"staff_id,omitempty"`
	OrderIDs    []string        `json:"order_ids"`
	Total       decimal.Decimal `json:"total"`
	ClosedAt    time.Time       `json:"closed_at"`
}

type StatusChange struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
	Notes     string      `json:"notes,omitempty"`
}

// Worker is a kitchen process as recorded in the worker registry.
type Worker struct {
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	LastSeen        time.Time `json:"last_seen"`
	OrdersProcessed int       `json:"orders_processed"`
}
