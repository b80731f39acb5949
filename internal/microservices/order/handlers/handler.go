package handlers

import (
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/order/service"
)

type Handler struct {
	OrderHandler *OrderHandler
	TableHandler *TableHandler
	StockHandler *StockHandler
}

func New(s *service.Service, log *logger.Logger) *Handler {
	log = log.Named("http")
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService, log),
		TableHandler: NewTableHandler(s.OrderService, log),
		StockHandler: NewStockHandler(s.OrderService, log),
	}
}
