package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// EventHandler handles one decoded order event
type EventHandler func(ctx context.Context, event order.Event) error

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Kafka] Error reading message: %v", err)
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				log.Printf("[Kafka] Error handling message %s: %v", msg.Key, err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeEvents adapts an EventHandler to raw messages
func DecodeEvents(handler EventHandler) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		var event order.Event
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("unmarshal order event: %w", err)
		}
		if event.OrderID == "" || event.EventType == "" {
			return fmt.Errorf("order event %q is missing order_id or event_type", event.ID)
		}
		return handler(ctx, event)
	}
}
