package store

import (
	"context"

	"github.com/example/order-orchestrator/internal/domain/order"
)

// OrderStore persists orders together with their line items.
//
// Save inserts an order with an empty ID (assigning ids and Version 1) and
// otherwise updates it only if the stored version still equals o.Version,
// returning order.ErrVersionConflict when it does not. On success the order
// is updated in place with the stored ids and version.
type OrderStore interface {
	Save(ctx context.Context, o *order.Order) error
	FindByID(ctx context.Context, id string) (*order.Order, error)
	FindAll(ctx context.Context) ([]*order.Order, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	FindItemByID(ctx context.Context, itemID string) (*order.Item, error)
	FindAllItems(ctx context.Context) ([]order.Item, error)
}
