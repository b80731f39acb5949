package domain

import "github.com/shopspring/decimal"

type CreateOrderItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	Kind             OrderKind         `json:"kind"`
	TableID          string            `json:"table_id,omitempty"`
	SeatNumber       int               `json:"seat_number,omitempty"`
	OccupantName     string            `json:"occupant_name,omitempty"`
	ClaimReservation bool              `json:"claim_reservation,omitempty"`
	CustomerID       string            `json:"customer_id,omitempty"`
	StaffID          string            `json:"staff_id,omitempty"`
	DeliveryAddress  string            `json:"delivery_address,omitempty"`
	Items            []CreateOrderItem `json:"items"`
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status"`
}

type PaymentRequest struct {
	Method     PaymentMethod   `json:"method"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

type FinalizeRequest struct {
	StaffID string `json:"staff_id,omitempty"`
}

type StockAdjustment struct {
	Delta decimal.Decimal `json:"delta"`
}

type OrderPage struct {
	Orders     []Order `json:"orders"`
	TotalPages int     `json:"total_pages"`
}
