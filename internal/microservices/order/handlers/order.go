package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
	log     *logger.Logger
}

func NewOrderHandler(s service.OrderServiceInterface, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: s, log: log}
}

func (oh *OrderHandler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	if staff := StaffFromContext(r.Context()); staff != "" {
		req.StaffID = staff
	}

	order, err := oh.service.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (oh *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := oh.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (oh *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.OrderFilter{
		TableID: q.Get("table_id"),
		Page:    atoiDefault(q.Get("page"), 1),
		Limit:   atoiDefault(q.Get("limit"), 0),
	}
	if s := q.Get("status"); s != "" {
		st, ok := domain.ParseOrderStatus(s)
		if !ok {
			writeError(w, r, oh.log, domain.InvalidOrderRequest("unknown status "+s))
			return
		}
		f.Status = st
	}
	page, err := oh.service.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (oh *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	order, err := oh.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, StaffFromContext(r.Context()))
	if err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (oh *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := oh.service.CancelOrder(r.Context(), chi.URLParam(r, "id"), StaffFromContext(r.Context()))
	if err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (oh *OrderHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	p, err := oh.service.RecordPayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, oh.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
