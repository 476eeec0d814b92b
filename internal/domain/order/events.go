package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderPaid          = "OrderPaid"
	EventOrderPaymentFailed = "OrderPaymentFailed"
	EventOrderUpdated       = "OrderUpdated"
	EventOrderDeleted       = "OrderDeleted"
)

// Event is the message published whenever an order changes
type Event struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	OrderID       string          `json:"order_id"`
	ClientID      int64           `json:"client_id"`
	Status        Status          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewEvent snapshots the order into an event of the given type
func NewEvent(eventType string, o *Order, now time.Time) Event {
	return Event{
		ID:            uuid.New().String(),
		EventType:     eventType,
		AggregateType: AggregateType,
		OrderID:       o.ID,
		ClientID:      o.ClientID,
		Status:        o.Status,
		Total:         o.Total,
		Version:       o.Version,
		OccurredAt:    now,
	}
}

// EventForStatus picks the event type that announces a payment outcome
func EventForStatus(s Status) string {
	switch s {
	case StatusClosedSuccess:
		return EventOrderPaid
	case StatusFailedNotPaid:
		return EventOrderPaymentFailed
	default:
		return EventOrderUpdated
	}
}
