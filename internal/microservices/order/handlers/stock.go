package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

type StockHandler struct {
	service service.OrderServiceInterface
	log     *logger.Logger
}

func NewStockHandler(s service.OrderServiceInterface, log *logger.Logger) *StockHandler {
	return &StockHandler{service: s, log: log}
}

func (sh *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := sh.service.ListStock(r.Context())
	if err != nil {
		writeError(w, r, sh.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredients": items})
}

func (sh *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustment
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, sh.log, err)
		return
	}
	st, err := sh.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, r, sh.log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
