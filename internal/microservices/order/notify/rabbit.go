package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/domain"
)

// Publisher is the confirm-mode publish of *rabbitmq.Client.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, messageID string) error
}

// RabbitSink broadcasts every event on notifications_fanout and additionally routes
// created orders to the kitchen through orders_topic.
type RabbitSink struct {
	pub Publisher
}

func NewRabbitSink(pub Publisher) *RabbitSink {
	return &RabbitSink{pub: pub}
}

func (s *RabbitSink) Publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	headers := amqp.Table{"x-source": "order-service", "x-event-type": string(ev.Type)}

	if ev.Type == domain.EventOrderCreated {
		if err := s.pub.Publish(ctx, rabbitmq.ExchangeOrders, rabbitmq.KitchenRoutingKey(string(ev.Kind)), body, headers, ev.ID); err != nil {
			return fmt.Errorf("failed to publish to kitchen: %w", err)
		}
	}
	if err := s.pub.Publish(ctx, rabbitmq.ExchangeNotifications, "", body, headers, ev.ID); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
