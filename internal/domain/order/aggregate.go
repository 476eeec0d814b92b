package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusClosedSuccess  Status = "CLOSED_SUCCESS"
	StatusFailedNotStock Status = "FAILED_NOT_STOCK"
	StatusFailedNotPaid  Status = "FAILED_NOT_PAID"
	StatusCancelled      Status = "CANCELLED"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrItemNotFound      = errors.New("order item not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrInvalidPrice      = errors.New("price must be non-negative")
	ErrInvalidTotal      = errors.New("total must be non-negative")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrVersionConflict   = errors.New("order was modified concurrently")
)

// validTransitions defines allowed automatic state transitions
var validTransitions = map[Status][]Status{
	StatusCreated:        {StatusClosedSuccess, StatusFailedNotStock, StatusFailedNotPaid, StatusCancelled},
	StatusClosedSuccess:  {}, // terminal state
	StatusFailedNotStock: {}, // terminal state
	StatusFailedNotPaid:  {}, // terminal state
	StatusCancelled:      {}, // terminal state
}

// legacyStatuses maps names found in older records onto the canonical set
var legacyStatuses = map[string]Status{
	"CLOSED_FAILED_NOT_STOCK": StatusFailedNotStock,
	"CLOSED_FAILED_NOT_PAID":  StatusFailedNotPaid,
	"PAID":                    StatusClosedSuccess,
}

// ParseStatus converts a status name (case-insensitive) into a canonical Status
func ParseStatus(s string) (Status, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := validTransitions[Status(name)]; ok {
		return Status(name), nil
	}
	if st, ok := legacyStatuses[name]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no automatic transition leaves the status
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Item is a single product line of an order. Build it with NewItem.
type Item struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	ProductSKU string          `json:"product_sku"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// NewItem validates quantity and price before an item can be attached to an order
func NewItem(sku string, quantity int, price decimal.Decimal) (Item, error) {
	if quantity <= 0 {
		return Item{}, fmt.Errorf("%w: sku %s, got %d", ErrInvalidQuantity, sku, quantity)
	}
	if price.IsNegative() {
		return Item{}, fmt.Errorf("%w: sku %s, got %s", ErrInvalidPrice, sku, price)
	}
	return Item{
		ProductSKU: sku,
		Quantity:   quantity,
		Price:      price,
	}, nil
}

// Subtotal returns price * quantity
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID        string          `json:"id"`
	ClientID  int64           `json:"client_id"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	Items     []Item          `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}

// New builds an unsaved order in CREATED status with its total computed from items
func New(clientID int64, items []Item, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	return &Order{
		ClientID:  clientID,
		Total:     CalculateTotal(items),
		Status:    StatusCreated,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CalculateTotal returns the exact sum of price * quantity
func CalculateTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// SKUs returns the product SKUs in item order
func (o *Order) SKUs() []string {
	skus := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		skus = append(skus, item.ProductSKU)
	}
	return skus
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the order to target and stamps UpdatedAt
func (o *Order) TransitionTo(target Status, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// ReplaceItems discards the current items and attaches the new set
func (o *Order) ReplaceItems(items []Item) {
	replaced := make([]Item, len(items))
	for i, item := range items {
		item.ID = ""
		item.OrderID = o.ID
		replaced[i] = item
	}
	o.Items = replaced
}

// FindItem returns the index of the item with the given id, or -1
func (o *Order) FindItem(itemID string) int {
	for i, item := range o.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
