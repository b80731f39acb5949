package tracker

import (
	"context"
	"errors"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/database"
	"restaurant-pos/internal/microservices/tracker/handler"
	"restaurant-pos/internal/microservices/tracker/repository"
	"restaurant-pos/internal/microservices/tracker/service"
)

// Run serves the read-only tracking API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Fulfillment.Store == "memory" {
		return errors.New("tracking service needs the postgres store")
	}
	db, err := database.ConnectDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.New(repository.NewTrackerRepo(db), service.Options{
		StoreTimeout:      cfg.Fulfillment.StoreTimeout,
		CookTime:          cfg.Kitchen.CookTime,
		HeartbeatInterval: cfg.Kitchen.HeartbeatInterval,
	})
	h := handler.New(svc.TrackerService, log)

	log.Info("service_started", map[string]any{"port": cfg.Tracker.Port})
	if err := httpx.New(cfg.Tracker.Port, handler.Router(h), cfg.HTTP.ShutdownGrace, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
