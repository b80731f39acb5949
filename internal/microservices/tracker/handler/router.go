package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/orders/{order_id}/status", h.TrackerHandler.GetStatus)
	r.Get("/orders/{order_id}/timeline", h.TrackerHandler.GetTimeline)
	r.Get("/workers/status", h.TrackerHandler.ListWorkers)
	return r
}
