package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"restaurant-pos/internal/domain"
)

// KafkaSink appends events to a topic keyed by order id, so one order's events keep their order.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	key := ev.OrderID
	if key == "" {
		key = ev.TableID
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send event to %s: %w", s.topic, err)
	}
	return nil
}
