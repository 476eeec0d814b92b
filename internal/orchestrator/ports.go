package orchestrator

import (
	"context"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
	"github.com/example/order-orchestrator/internal/infrastructure/lock"
)

type ClientGateway interface {
	Exists(ctx context.Context, clientID int64) error
}

type ProductGateway interface {
	ValidateSKUs(ctx context.Context, skus []string) error
}

type StockGateway interface {
	Get(ctx context.Context, sku string) (*gateway.Stock, error)
	Decrease(ctx context.Context, sku string, quantity int) error
	Increase(ctx context.Context, sku string, quantity int) error
}

type PaymentGateway interface {
	GenerateToken(ctx context.Context, req gateway.TokenRequest) (*gateway.TokenResponse, error)
	ChargeCard(ctx context.Context, req gateway.CardChargeRequest, token string) (*gateway.CardChargeResponse, error)
	GenerateQR(ctx context.Context, req gateway.QRChargeRequest, token string) (*gateway.QRChargeResponse, error)
	GetStatus(ctx context.Context, paymentID, token string) (*gateway.PaymentStatus, error)
}

// EventPublisher announces order changes; publishing is best-effort
type EventPublisher interface {
	Publish(ctx context.Context, event order.Event) error
}

// Locker serialises payments per order
type Locker interface {
	Acquire(ctx context.Context, key string) (lock.ReleaseFunc, error)
}
