package models

import (
	"time"

	"restaurant-pos/internal/domain"
)

type OrderView struct {
	OrderID             string             `json:"order_id"`
	OrderNumber         int64              `json:"order_number"`
	Kind                domain.OrderKind   `json:"kind"`
	TableID             string             `json:"table_id,omitempty"`
	Status              domain.OrderStatus `json:"status"`
	UpdatedAt           time.Time          `json:"updated_at"`
	EstimatedCompletion *time.Time         `json:"estimated_completion,omitempty"` // only while cooking is ahead
}

type WorkerStatus struct {
	WorkerName      string    `json:"worker_name"`
	Type            string    `json:"type"`
	Status          string    `json:"status"` // "online" | "offline"
	OrdersProcessed int       `json:"orders_processed"`
	LastSeen        time.Time `json:"last_seen"`
}
