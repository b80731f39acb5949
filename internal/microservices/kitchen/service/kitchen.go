package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/kitchen/repository"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

type KitchenServiceInterface interface {
	Heartbeat(ctx context.Context) error
	Run(ctx context.Context) error
}

// OrderAdvancer moves orders through their lifecycle. The order coordinator satisfies it.
type OrderAdvancer interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, changedBy string) (domain.Order, error)
}

type Consumer interface {
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, *amqp.Channel, error)
}

type Options struct {
	WorkerName string
	OrderKinds []string // empty means every kind
	Prefetch   int
	BeatEvery  time.Duration
	CookTime   time.Duration
}

type KitchenService struct {
	workers  repository.WorkerRepositoryInterface
	orders   OrderAdvancer
	consumer Consumer
	log      *logger.Logger

	name     string
	kinds    []domain.OrderKind
	prefetch int
	beat     time.Duration
	cook     time.Duration
}

func NewKitchenService(workers repository.WorkerRepositoryInterface, orders OrderAdvancer, consumer Consumer, log *logger.Logger, opts Options) *KitchenService {
	ks := &KitchenService{
		workers:  workers,
		orders:   orders,
		consumer: consumer,
		log:      log.Named("kitchen"),
		name:     strings.TrimSpace(opts.WorkerName),
		prefetch: opts.Prefetch,
		beat:     opts.BeatEvery,
		cook:     opts.CookTime,
	}
	for _, k := range opts.OrderKinds {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			ks.kinds = append(ks.kinds, domain.OrderKind(k))
		}
	}
	if ks.prefetch <= 0 {
		ks.prefetch = 1
	}
	if ks.beat <= 0 {
		ks.beat = 30 * time.Second
	}
	return ks
}

func (ks *KitchenService) workerType() string {
	if len(ks.kinds) == 0 {
		return "generic"
	}
	parts := make([]string, len(ks.kinds))
	for i, k := range ks.kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func (ks *KitchenService) Heartbeat(ctx context.Context) error {
	return ks.workers.Heartbeat(ctx, ks.name)
}

func (ks *KitchenService) Run(ctx context.Context) error {
	if ks.name == "" {
		return fmt.Errorf("worker name is empty: pass --worker-name")
	}
	if err := ks.workers.RegisterOrFail(ctx, ks.name, ks.workerType()); err != nil {
		ks.log.Error("worker_registration_failed", err, map[string]any{"worker": ks.name})
		return err
	}
	ks.log.Info("worker_registered", map[string]any{"worker": ks.name, "type": ks.workerType()})

	msgs, ch, err := ks.consumer.Consume(rabbitmq.QueueKitchen, ks.name, ks.prefetch)
	if err != nil {
		_ = ks.workers.SetOffline(context.WithoutCancel(ctx), ks.name)
		return err
	}
	defer ch.Close()

	var wg sync.WaitGroup
	beatCtx, stopBeat := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ks.heartbeatLoop(beatCtx)
	}()

	ks.log.Info("consuming", map[string]any{"queue": rabbitmq.QueueKitchen, "prefetch": ks.prefetch, "worker": ks.name})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ks.serve(ctx, msgs)
	}()

	select {
	case <-ctx.Done():
		ks.log.Info("graceful_shutdown", map[string]any{"worker": ks.name})
		_ = ch.Cancel(ks.name, false)
		<-done
	case <-done:
		ks.log.Warn("delivery_channel_closed", map[string]any{"worker": ks.name})
	}

	stopBeat()
	wg.Wait()
	if err := ks.workers.SetOffline(context.WithoutCancel(ctx), ks.name); err != nil {
		ks.log.Error("worker_offline_failed", err, map[string]any{"worker": ks.name})
	}
	if ctx.Err() == nil {
		return errors.New("kitchen deliveries stopped")
	}
	return nil
}

func (ks *KitchenService) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(ks.beat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := ks.Heartbeat(ctx); err != nil {
				ks.log.Warn("heartbeat_failed", map[string]any{"worker": ks.name, "reason": err.Error()})
				continue
			}
			ks.log.Debug("heartbeat_sent", map[string]any{"worker": ks.name})
		}
	}
}

// serve settles every delivery until msgs is closed.
func (ks *KitchenService) serve(ctx context.Context, msgs <-chan amqp.Delivery) {
	for d := range msgs {
		err := ks.processOne(ctx, d)
		switch {
		case err == nil:
			_ = d.Ack(false)
		case errors.Is(err, ErrDLQ):
			_ = d.Nack(false, false)
		default:
			_ = d.Nack(false, true)
		}
	}
}

func (ks *KitchenService) allowedKind(k domain.OrderKind) bool {
	if len(ks.kinds) == 0 {
		return true
	}
	k = domain.OrderKind(strings.ToLower(strings.TrimSpace(string(k))))
	for _, v := range ks.kinds {
		if k == v {
			return true
		}
	}
	return false
}

func (ks *KitchenService) processOne(ctx context.Context, d amqp.Delivery) error {
	var ev domain.Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		ks.log.Warn("message_malformed", map[string]any{"message_id": d.MessageId, "reason": err.Error()})
		return ErrDLQ
	}
	if ev.OrderID == "" || ev.Kind == "" {
		ks.log.Warn("message_malformed", map[string]any{"message_id": d.MessageId, "reason": "missing order id or kind"})
		return ErrDLQ
	}
	if ev.Type != domain.EventOrderCreated {
		ks.log.Debug("message_ignored", map[string]any{"type": ev.Type, "order_id": ev.OrderID})
		return nil
	}
	if !ks.allowedKind(ev.Kind) {
		return ErrRequeue
	}
	fields := map[string]any{"order_id": ev.OrderID, "order_number": ev.OrderNumber, "worker": ks.name}

	_, err := ks.orders.UpdateStatus(ctx, ev.OrderID, domain.StatusPreparing, ks.name)
	switch {
	case err == nil:
		ks.log.Debug("order_processing_started", fields)
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		// A redelivery after a crash mid-cook finds the order already preparing.
		cur, gerr := ks.orders.GetOrder(ctx, ev.OrderID)
		if gerr != nil {
			return ks.settle(gerr, fields)
		}
		if cur.Status != domain.StatusPreparing {
			fields["status"] = cur.Status
			ks.log.Info("order_skipped", fields)
			return nil
		}
		ks.log.Info("order_processing_resumed", fields)
	default:
		return ks.settle(err, fields)
	}

	select {
	case <-time.After(ks.cook):
	case <-ctx.Done():
		return ErrRequeue
	}

	if _, err := ks.orders.UpdateStatus(ctx, ev.OrderID, domain.StatusReady, ks.name); err != nil {
		return ks.settle(err, fields)
	}
	if err := ks.workers.IncrementProcessed(ctx, ks.name); err != nil {
		ks.log.Warn("processed_counter_failed", map[string]any{"worker": ks.name, "reason": err.Error()})
	}
	ks.log.Debug("order_completed", fields)
	return nil
}

// settle maps a coordinator failure to an ack decision: storage trouble is retried,
// anything the coordinator rejected on its merits is dropped.
func (ks *KitchenService) settle(err error, fields map[string]any) error {
	if domain.KindOf(err).Class() == domain.ClassInfrastructure {
		ks.log.Error("order_update_failed", err, fields)
		return ErrRequeue
	}
	fields["reason"] = err.Error()
	ks.log.Warn("order_dropped", fields)
	return nil
}
