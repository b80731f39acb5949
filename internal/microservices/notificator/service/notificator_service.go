package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/domain"
)

var errMalformed = errors.New("malformed notification")

type Consumer interface {
	Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, *amqp.Channel, error)
}

// NotificatorService prints every event published on notifications_fanout.
type NotificatorService struct {
	consumer Consumer
	log      *logger.Logger
	tag      string
}

func NewNotificatorService(consumer Consumer, log *logger.Logger) *NotificatorService {
	return &NotificatorService{consumer: consumer, log: log.Named("notificator"), tag: "notificator"}
}

func (ns *NotificatorService) Run(ctx context.Context) error {
	msgs, ch, err := ns.consumer.Consume(rabbitmq.QueueNotifications, ns.tag, 10)
	if err != nil {
		return err
	}
	defer ch.Close()
	ns.log.Info("consuming", map[string]any{"queue": rabbitmq.QueueNotifications})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ns.serve(msgs)
	}()

	select {
	case <-ctx.Done():
		_ = ch.Cancel(ns.tag, false)
		<-done
		return nil
	case <-done:
		return errors.New("notification deliveries stopped")
	}
}

func (ns *NotificatorService) serve(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		if err := ns.processOne(d); err != nil {
			ns.log.Warn("notification_rejected", map[string]any{"message_id": d.MessageId, "reason": err.Error()})
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (ns *NotificatorService) processOne(d amqp.Delivery) error {
	var ev domain.Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.Type == "" {
		return fmt.Errorf("%w: missing type", errMalformed)
	}
	ns.log.Info("notification_received", map[string]any{
		"event_id":     ev.ID,
		"type":         string(ev.Type),
		"order_id":     ev.OrderID,
		"table_id":     ev.TableID,
		"message":      Describe(ev),
		"occurred_at":  ev.OccurredAt,
		"order_number": ev.OrderNumber,
	})
	return nil
}

// Describe renders ev as the one-line message shown on the floor display.
func Describe(ev domain.Event) string {
	subject := fmt.Sprintf("Order #%d", ev.OrderNumber)
	if ev.TableID != "" {
		subject += " (table " + ev.TableID + ")"
	}
	switch ev.Type {
	case domain.EventOrderCreated:
		return fmt.Sprintf("%s placed, %d item(s), total %s", subject, len(ev.Items), ev.Total.StringFixed(2))
	case domain.EventOrderStatusChanged:
		msg := fmt.Sprintf("%s changed from %s to %s", subject, ev.OldStatus, ev.NewStatus)
		if ev.ChangedBy != "" {
			msg += " by " + ev.ChangedBy
		}
		return msg
	case domain.EventTableFinalized:
		return fmt.Sprintf("Table %s closed, total %s", ev.TableID, ev.Total.StringFixed(2))
	default:
		return string(ev.Type)
	}
}
