package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/config"
)

const (
	ExchangeOrders        = "orders_topic"
	ExchangeNotifications = "notifications_fanout"
	ExchangeDeadLetter    = "dlx"

	QueueKitchen       = "kitchen_queue"
	QueueNotifications = "notifications_queue"
	QueueDeadLetter    = "dlq"
)

// KitchenRoutingKey is the orders_topic key a created order is published under.
func KitchenRoutingKey(kind string) string { return "kitchen." + kind }

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // Publish waits for its own confirm
}

func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" || vhost == "/" {
		vhost = ""
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	url := fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)

	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(url)
	}
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareTopology declares every exchange, queue and binding the services use. Idempotent.
func (c *Client) DeclareTopology() error {
	ch := c.ch
	if err := ch.ExchangeDeclare(ExchangeOrders, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeOrders, err)
	}
	if err := ch.ExchangeDeclare(ExchangeNotifications, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeNotifications, err)
	}
	if err := ch.ExchangeDeclare(ExchangeDeadLetter, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeDeadLetter, err)
	}
	if _, err := ch.QueueDeclare(QueueKitchen, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": QueueDeadLetter,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", QueueKitchen, err)
	}
	if _, err := ch.QueueDeclare(QueueNotifications, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", QueueNotifications, err)
	}
	if _, err := ch.QueueDeclare(QueueDeadLetter, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", QueueDeadLetter, err)
	}
	if err := ch.QueueBind(QueueKitchen, "kitchen.*", ExchangeOrders, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", QueueKitchen, err)
	}
	if err := ch.QueueBind(QueueNotifications, "", ExchangeNotifications, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", QueueNotifications, err)
	}
	if err := ch.QueueBind(QueueDeadLetter, QueueDeadLetter, ExchangeDeadLetter, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", QueueDeadLetter, err)
	}
	return nil
}

// Publish sends one message and waits for the broker ack.
func (c *Client) Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	}); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume opens a dedicated channel for queue. Closing the returned channel stops delivery.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, *amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return msgs, ch, nil
}
