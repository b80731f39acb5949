package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
)

// Sink delivers one event to display clients. Delivery is best-effort.
type Sink interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Emitter publishes events off the caller's path. A failing or slow sink never
// blocks or fails the state change that produced the event.
type Emitter struct {
	sink    Sink
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewEmitter(sink Sink, timeout time.Duration, log *logger.Logger) *Emitter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Emitter{sink: sink, timeout: timeout, log: log}
}

func (e *Emitter) Emit(ev domain.Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("notification_panic", errors.New("sink panicked"), map[string]any{"event_id": ev.ID, "panic": r})
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := e.sink.Publish(ctx, ev); err != nil {
			e.log.Error("notification_failed", err, map[string]any{"event_id": ev.ID, "type": string(ev.Type), "order_id": ev.OrderID})
			return
		}
		e.log.Debug("notification_sent", map[string]any{"event_id": ev.ID, "type": string(ev.Type)})
	}()
}

// Drain waits for in-flight emissions or until ctx is done.
func (e *Emitter) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the service log. Used when no broker is configured.
type LogSink struct {
	Log *logger.Logger
}

func (s LogSink) Publish(_ context.Context, ev domain.Event) error {
	s.Log.Info("event_emitted", map[string]any{
		"event_id":   ev.ID,
		"type":       string(ev.Type),
		"order_id":   ev.OrderID,
		"table_id":   ev.TableID,
		"old_status": string(ev.OldStatus),
		"new_status": string(ev.NewStatus),
	})
	return nil
}
