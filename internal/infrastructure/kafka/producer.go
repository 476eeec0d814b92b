package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/segmentio/kafka-go"
)

const eventTypeHeader = "event_type"

// Producer publishes order events keyed by order id, so one order's events stay in one partition
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, event order.Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", event.EventType, event.OrderID, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func newMessage(event order.Event) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", event.EventType, err)
	}
	return kafka.Message{
		Key:     []byte(event.OrderID),
		Value:   data,
		Time:    event.OccurredAt,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(event.EventType)}},
	}, nil
}
