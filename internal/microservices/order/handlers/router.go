package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-pos/internal/common/idempotency"
	"restaurant-pos/internal/common/logger"
)

type RouterOptions struct {
	JWTSecret     string
	Issuer        string
	MaxConcurrent int
	Idempotency   idempotency.Store
	Log           *logger.Logger
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)
	if opts.MaxConcurrent > 0 {
		r.Use(middleware.Throttle(opts.MaxConcurrent))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(Authenticate([]byte(opts.JWTSecret), opts.Issuer))
		} else {
			r.Use(staffHeader)
		}

		r.With(Idempotent(opts.Idempotency, log)).Post("/orders", h.OrderHandler.AddOrder)
		r.Get("/orders", h.OrderHandler.ListOrders)
		r.Get("/orders/{id}", h.OrderHandler.GetOrder)
		r.Patch("/orders/{id}/status", h.OrderHandler.UpdateStatus)
		r.Post("/orders/{id}/cancel", h.OrderHandler.CancelOrder)
		r.Post("/orders/{id}/payments", h.OrderHandler.RecordPayment)

		r.Get("/tables", h.TableHandler.ListTables)
		r.Get("/tables/{id}", h.TableHandler.GetTable)
		r.Post("/tables/{id}/finalize", h.TableHandler.Finalize)
		r.Post("/tables/{id}/reserve", h.TableHandler.Reserve)
		r.Delete("/tables/{id}/reservation", h.TableHandler.ReleaseReservation)
		r.Post("/tables/{id}/clean", h.TableHandler.Clean)

		r.Get("/stock", h.StockHandler.List)
		r.Patch("/stock/{id}", h.StockHandler.Adjust)
	})
	return r
}
