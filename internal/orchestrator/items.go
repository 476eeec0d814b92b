package orchestrator

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/example/order-orchestrator/internal/domain/order"
)

// Item operations edit lines of an existing order. They leave Total and
// Status as they are; Update recomputes or overrides the total.

// AddItem appends an item to an order and returns it with its assigned id
func (o *Orchestrator) AddItem(ctx context.Context, orderID string, in ItemInput) (*order.Item, error) {
	item, err := order.NewItem(in.ProductSKU, in.Quantity, in.Price)
	if err != nil {
		return nil, err
	}

	current, err := o.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	current.Items = append(current.Items, item)
	current.UpdatedAt = o.now()
	if err := o.store.Save(ctx, current); err != nil {
		return nil, err
	}

	added := current.Items[len(current.Items)-1]
	log.Printf("[Orchestrator] Item %s (%s x%d) added to order %s", added.ID, added.ProductSKU, added.Quantity, orderID)
	o.publish(ctx, order.EventOrderUpdated, current)
	return &added, nil
}

func (o *Orchestrator) FindItem(ctx context.Context, itemID string) (*order.Item, error) {
	return o.store.FindItemByID(ctx, itemID)
}

func (o *Orchestrator) ListItems(ctx context.Context) ([]order.Item, error) {
	return o.store.FindAllItems(ctx)
}

// UpdateItem replaces sku, quantity and price of an item. When cmd.OrderID names
// another order the item moves there and gets a new id.
func (o *Orchestrator) UpdateItem(ctx context.Context, itemID string, cmd UpdateItem) (*order.Item, error) {
	replacement, err := order.NewItem(cmd.ProductSKU, cmd.Quantity, cmd.Price)
	if err != nil {
		return nil, err
	}

	existing, err := o.store.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	source, idx, err := o.loadItemOwner(ctx, existing.OrderID, itemID)
	if err != nil {
		return nil, err
	}

	if cmd.OrderID == "" || cmd.OrderID == source.ID {
		replacement.ID = itemID
		replacement.OrderID = source.ID
		source.Items[idx] = replacement
		source.UpdatedAt = o.now()
		if err := o.store.Save(ctx, source); err != nil {
			return nil, err
		}
		o.publish(ctx, order.EventOrderUpdated, source)
		return &replacement, nil
	}

	// load the target first so a bad order id leaves the item where it is
	target, err := o.store.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	source.Items = slices.Delete(source.Items, idx, idx+1)
	source.UpdatedAt = o.now()
	if err := o.store.Save(ctx, source); err != nil {
		return nil, err
	}
	o.publish(ctx, order.EventOrderUpdated, source)

	target.Items = append(target.Items, replacement)
	target.UpdatedAt = o.now()
	if err := o.store.Save(ctx, target); err != nil {
		return nil, fmt.Errorf("move item %s to order %s: %w", itemID, target.ID, err)
	}
	o.publish(ctx, order.EventOrderUpdated, target)

	moved := target.Items[len(target.Items)-1]
	log.Printf("[Orchestrator] Item %s moved from order %s to order %s as %s", itemID, source.ID, target.ID, moved.ID)
	return &moved, nil
}

// DeleteItem removes an item from its order
func (o *Orchestrator) DeleteItem(ctx context.Context, itemID string) error {
	existing, err := o.store.FindItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	owner, idx, err := o.loadItemOwner(ctx, existing.OrderID, itemID)
	if err != nil {
		return err
	}

	owner.Items = slices.Delete(owner.Items, idx, idx+1)
	owner.UpdatedAt = o.now()
	if err := o.store.Save(ctx, owner); err != nil {
		return err
	}

	log.Printf("[Orchestrator] Item %s removed from order %s", itemID, owner.ID)
	o.publish(ctx, order.EventOrderUpdated, owner)
	return nil
}

func (o *Orchestrator) loadItemOwner(ctx context.Context, orderID, itemID string) (*order.Order, int, error) {
	owner, err := o.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, -1, err
	}
	idx := owner.FindItem(itemID)
	if idx < 0 {
		// removed between the two reads
		return nil, -1, fmt.Errorf("%w: %s", order.ErrItemNotFound, itemID)
	}
	return owner, idx, nil
}
