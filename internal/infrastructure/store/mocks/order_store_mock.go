package mocks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/google/uuid"
)

// MockOrderStore is an in-memory implementation of store.OrderStore for testing.
// It follows the same id and version rules as the real stores.
type MockOrderStore struct {
	mu     sync.Mutex
	orders map[string]*order.Order
	ids    []string // insertion order

	// For tracking calls in tests
	SaveCalls   []order.Order
	FindCalls   []string
	DeleteCalls []string

	SaveErr      error
	FindErr      error
	DeleteErr    error
	SaveCallback func(ctx context.Context, o *order.Order) error
}

// NewMockOrderStore creates a new MockOrderStore
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders: make(map[string]*order.Order),
	}
}

// Save stores a copy of the order
func (m *MockOrderStore) Save(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, *clone(o))

	if m.SaveCallback != nil {
		if err := m.SaveCallback(ctx, o); err != nil {
			return err
		}
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	id := o.ID
	version := o.Version + 1
	if id == "" {
		id = uuid.New().String()
		version = 1
	} else {
		stored, ok := m.orders[id]
		if !ok {
			return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
		}
		if stored.Version != o.Version {
			return fmt.Errorf("%w: %s", order.ErrVersionConflict, id)
		}
	}

	items := make([]order.Item, len(o.Items))
	for i, item := range o.Items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = id
		items[i] = item
	}

	o.ID = id
	o.Version = version
	o.Items = items

	if _, ok := m.orders[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.orders[id] = clone(o)
	return nil
}

// FindByID returns a copy of the stored order
func (m *MockOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls = append(m.FindCalls, id)
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return clone(o), nil
}

// FindAll returns copies of all orders in insertion order
func (m *MockOrderStore) FindAll(ctx context.Context) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	out := make([]*order.Order, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, clone(m.orders[id]))
	}
	return out, nil
}

func (m *MockOrderStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return false, m.FindErr
	}
	_, ok := m.orders[id]
	return ok, nil
}

func (m *MockOrderStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	delete(m.orders, id)
	m.ids = slices.DeleteFunc(m.ids, func(v string) bool { return v == id })
	return nil
}

func (m *MockOrderStore) FindItemByID(ctx context.Context, itemID string) (*order.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, id := range m.ids {
		for _, item := range m.orders[id].Items {
			if item.ID == itemID {
				found := item
				return &found, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", order.ErrItemNotFound, itemID)
}

func (m *MockOrderStore) FindAllItems(ctx context.Context) ([]order.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	items := make([]order.Item, 0)
	for _, id := range m.ids {
		items = append(items, m.orders[id].Items...)
	}
	return items, nil
}

// Count returns the number of stored orders
func (m *MockOrderStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Reset clears all orders and recorded calls
func (m *MockOrderStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]*order.Order)
	m.ids = nil
	m.SaveCalls = nil
	m.FindCalls = nil
	m.DeleteCalls = nil
	m.SaveErr = nil
	m.FindErr = nil
	m.DeleteErr = nil
	m.SaveCallback = nil
}

func clone(o *order.Order) *order.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}
