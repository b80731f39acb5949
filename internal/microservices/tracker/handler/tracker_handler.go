package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/service"
)

type TrackerHandler struct {
	service service.TrackerServiceInterface
	log     *logger.Logger
}

func NewTrackerHandler(svc service.TrackerServiceInterface, log *logger.Logger) *TrackerHandler {
	return &TrackerHandler{service: svc, log: log.Named("tracker")}
}

func (h *TrackerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetOrderView(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *TrackerHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	limit := atoiDefault(r.URL.Query().Get("limit"), 0)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	events, err := h.service.GetOrderTimeline(r.Context(), id, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "events": events})
}

func (h *TrackerHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.service.ListWorkers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": workers})
}

func (h *TrackerHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindOrderNotFound:
		writeProblem(w, http.StatusNotFound, string(domain.KindOrderNotFound), err.Error())
	case domain.KindStorageTimeout:
		writeProblem(w, http.StatusGatewayTimeout, string(domain.KindStorageTimeout), err.Error())
	default:
		h.log.Ctx(r.Context()).Error("tracker_request_failed", err, map[string]any{"path": r.URL.Path})
		writeProblem(w, http.StatusInternalServerError, "db_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes a simplified RFC 7807 body.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
