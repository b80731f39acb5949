package kitchen

import (
	"context"
	"errors"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/microservices/kitchen/repository"
	"restaurant-pos/internal/microservices/kitchen/service"
	"restaurant-pos/internal/microservices/order"
)

// Run consumes kitchen_queue until ctx is cancelled. Status changes go through the same
// coordinator the order service uses, so the worker needs the shared postgres store.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.Fulfillment.Store == "memory" {
		return errors.New("kitchen worker needs the postgres store")
	}
	if !cfg.RabbitMQ.Enabled {
		return errors.New("kitchen worker needs rabbitmq enabled")
	}

	rt, err := order.NewRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	consumer, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer consumer.Close()

	svc := service.New(repository.New(rt.DB), rt.Service, consumer, log, service.Options{
		WorkerName: cfg.Kitchen.WorkerName,
		OrderKinds: cfg.Kitchen.OrderKinds,
		Prefetch:   cfg.Kitchen.Prefetch,
		BeatEvery:  cfg.Kitchen.HeartbeatInterval,
		CookTime:   cfg.Kitchen.CookTime,
	})
	runErr := svc.KitchenService.Run(ctx)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownGrace)
	defer cancel()
	if err := rt.Service.Drain(dctx); err != nil {
		log.Warn("drain_incomplete", map[string]any{"reason": err.Error()})
	}
	return runErr
}
