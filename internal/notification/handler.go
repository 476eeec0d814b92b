package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/example/order-orchestrator/internal/email"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
)

// Sender delivers order status emails
type Sender interface {
	SendOrderStatus(to string, n email.OrderNotice) error
}

// ClientDirectory resolves the contact details of a client
type ClientDirectory interface {
	Get(ctx context.Context, clientID int64) (*gateway.Client, error)
}

// Handler turns order events into client emails
type Handler struct {
	sender   Sender
	clients  ClientDirectory
	currency string
}

// NewHandler creates a new notification handler
func NewHandler(sender Sender, clients ClientDirectory, currency string) *Handler {
	return &Handler{
		sender:   sender,
		clients:  clients,
		currency: currency,
	}
}

// HandleEvent emails the client when an order is received, rejected for stock,
// paid or refused by the payment service. Other events are ignored. Unknown
// clients are skipped; lookup and delivery failures are returned for retry.
func (h *Handler) HandleEvent(ctx context.Context, event order.Event) error {
	kind, ok := noticeFor(event)
	if !ok {
		return nil
	}

	log.Printf("[Notifier] Processing %s event for order %s, client %d", event.EventType, event.OrderID, event.ClientID)

	client, err := h.clients.Get(ctx, event.ClientID)
	if err != nil {
		if errors.Is(err, gateway.ErrClientNotFound) {
			log.Printf("[Notifier] Client not found: %d", event.ClientID)
			return nil
		}
		return fmt.Errorf("lookup client %d: %w", event.ClientID, err)
	}
	if client.Email == "" {
		log.Printf("[Notifier] Client %d has no email address", event.ClientID)
		return nil
	}

	notice := email.OrderNotice{
		Kind:       kind,
		OrderID:    event.OrderID,
		ClientName: client.Name,
		Status:     string(event.Status),
		Total:      event.Total,
		Currency:   h.currency,
	}
	if err := h.sender.SendOrderStatus(client.Email, notice); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", client.Email, err)
		return err
	}

	log.Printf("[Notifier] %s email sent to %s for order %s", kind, client.Email, event.OrderID)
	return nil
}

func noticeFor(event order.Event) (email.NoticeKind, bool) {
	switch event.EventType {
	case order.EventOrderCreated:
		if event.Status == order.StatusFailedNotStock {
			return email.NoticeOutOfStock, true
		}
		return email.NoticeOrderReceived, true
	case order.EventOrderPaid:
		return email.NoticePaid, true
	case order.EventOrderPaymentFailed:
		return email.NoticePaymentFailed, true
	default:
		return "", false
	}
}
