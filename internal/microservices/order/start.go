package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/idempotency"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/database"
	"restaurant-pos/internal/connections/kafka"
	"restaurant-pos/internal/connections/rabbitmq"
	rediscon "restaurant-pos/internal/connections/redis"
	"restaurant-pos/internal/connections/s3archive"
	"restaurant-pos/internal/microservices/order/handlers"
	"restaurant-pos/internal/microservices/order/notify"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/order/repository/memory"
	"restaurant-pos/internal/microservices/order/service"
	"restaurant-pos/internal/seed"
)

// Runtime is a wired coordinator plus the connections it owns.
type Runtime struct {
	Service *service.OrderService
	DB      *sql.DB
	Memory  *memory.Store

	closers []func()
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// NewRuntime opens the configured store and notification sinks and builds the coordinator.
// The kitchen worker uses it too, so status changes follow the same rules everywhere.
func NewRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	rt := &Runtime{}
	var repo *repository.Repository

	switch cfg.Fulfillment.Store {
	case "memory":
		rt.Memory = memory.New()
		repo = rt.Memory.Repository()
		log.Warn("memory_store_enabled", map[string]any{"reason": "state is lost on restart"})
		if _, err := seed.Run(ctx, repo, log, seed.Options{
			Tables: cfg.Seed.Tables, Customers: cfg.Seed.Customers, Seed: cfg.Seed.RandomSeed,
		}); err != nil {
			return nil, err
		}
	default:
		db, err := database.ConnectDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		rt.DB = db
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		repo = repository.New(db)
	}

	sinks := notify.Multi{notify.LogSink{Log: log.Named("events")}}
	if cfg.RabbitMQ.Enabled {
		client, err := rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		if err := client.DeclareTopology(); err != nil {
			rt.Close()
			return nil, err
		}
		sinks = append(sinks, notify.NewRabbitSink(client))
	}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewSyncProducer(cfg.Kafka)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = producer.Close() })
		sinks = append(sinks, notify.NewKafkaSink(producer, cfg.Kafka.Topic))
	}
	emitter := notify.NewEmitter(sinks, cfg.Fulfillment.NotifyTimeout, log)

	opts := service.Options{
		StoreTimeout:    cfg.Fulfillment.StoreTimeout,
		FinalizeToDirty: cfg.Fulfillment.FinalizeToDirty,
		PageLimit:       cfg.Fulfillment.PageLimit,
	}
	if cfg.Archive.Bucket != "" {
		archiver, err := s3archive.New(ctx, cfg.Archive)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts.Archiver = archiver
	}

	rt.Service = service.NewOrderService(repo, emitter, log, opts)
	return rt, nil
}

func idempotencyStore(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (idempotency.Store, func(), error) {
	if cfg.Addr == "" {
		log.Info("idempotency_store", map[string]any{"backend": "memory"})
		return idempotency.NewMemoryStore(cfg.TTL), func() {}, nil
	}
	client, err := rediscon.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("idempotency_store", map[string]any{"backend": "redis", "addr": cfg.Addr})
	return idempotency.NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), func() { _ = client.Close() }, nil
}

// Run serves the order API until ctx is cancelled, then waits for pending notifications.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	rt, err := NewRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	idem, closeIdem, err := idempotencyStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeIdem()

	h := handlers.New(service.New(rt.Service), log)
	router := handlers.NewRouter(h, handlers.RouterOptions{
		JWTSecret:     cfg.Auth.JWTSecret,
		Issuer:        cfg.Auth.Issuer,
		MaxConcurrent: cfg.HTTP.MaxConcurrent,
		Idempotency:   idem,
		Log:           log,
	})

	log.Info("service_started", map[string]any{
		"port": cfg.HTTP.Port, "max_concurrent": cfg.HTTP.MaxConcurrent, "store": cfg.Fulfillment.Store,
	})
	runErr := httpx.New(cfg.HTTP.Port, router, cfg.HTTP.ShutdownGrace, log).Run(ctx)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownGrace)
	defer cancel()
	if err := rt.Service.Drain(dctx); err != nil {
		log.Warn("drain_incomplete", map[string]any{"reason": err.Error()})
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("order service: %w", runErr)
	}
	return nil
}
