package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/service"
)

type TableHandler struct {
	service service.OrderServiceInterface
	log     *logger.Logger
}

func NewTableHandler(s service.OrderServiceInterface, log *logger.Logger) *TableHandler {
	return &TableHandler{service: s, log: log}
}

func (th *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	status := domain.TableStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.TableFree, domain.TableReserved, domain.TableOccupied, domain.TableDirty:
	default:
		writeError(w, r, th.log, domain.InvalidOrderRequest("unknown table status "+string(status)))
		return
	}
	tables, err := th.service.ListTables(r.Context(), status)
	if err != nil {
		writeError(w, r, th.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (th *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	t, err := th.service.GetTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, th.log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (th *TableHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req domain.FinalizeRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, th.log, err)
			return
		}
	}
	if staff := StaffFromContext(r.Context()); staff != "" {
		req.StaffID = staff
	}
	closing, err := th.service.FinalizeTable(r.Context(), chi.URLParam(r, "id"), req.StaffID)
	if err != nil {
		writeError(w, r, th.log, err)
		return
	}
	writeJSON(w, http.StatusOK, closing)
}

func (th *TableHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	th.move(w, r, th.service.ReserveTable)
}

func (th *TableHandler) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	th.move(w, r, th.service.ReleaseReservation)
}

func (th *TableHandler) Clean(w http.ResponseWriter, r *http.Request) {
	th.move(w, r, th.service.MarkTableClean)
}

func (th *TableHandler) move(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (domain.Table, error)) {
	t, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, th.log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
