package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/example/order-orchestrator/internal/infrastructure/store"
	"github.com/example/order-orchestrator/internal/metrics"
)

const (
	defaultPollAttempts        = 6
	defaultPollInterval        = 5 * time.Second
	defaultCompensationTimeout = 10 * time.Second
	defaultPublishTimeout      = 5 * time.Second
	defaultCurrency            = "BRL"
	defaultGrantType           = "client_credentials"
	defaultScope               = "oob"
)

// PaymentConfig holds the merchant settings and PIX polling policy
type PaymentConfig struct {
	SellerID     string
	Currency     string
	GrantType    string
	ClientID     string // defaults to SellerID
	ClientSecret string
	Scope        string

	PollAttempts int
	PollInterval time.Duration

	// CompensationTimeout bounds the stock give-back after a failed create
	CompensationTimeout time.Duration
	// PublishTimeout bounds each event publish, which outlives request cancellation
	PublishTimeout time.Duration
}

func (c PaymentConfig) withDefaults() PaymentConfig {
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.GrantType == "" {
		c.GrantType = defaultGrantType
	}
	if c.ClientID == "" {
		c.ClientID = c.SellerID
	}
	if c.Scope == "" {
		c.Scope = defaultScope
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = defaultPollAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.CompensationTimeout <= 0 {
		c.CompensationTimeout = defaultCompensationTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	return c
}

// Deps are the collaborators of the Orchestrator. Events, Locker and Metrics are optional.
type Deps struct {
	Store    store.OrderStore
	Clients  ClientGateway
	Products ProductGateway
	Stock    StockGateway
	Payments PaymentGateway
	Events   EventPublisher
	Locker   Locker
	Metrics  *metrics.OrchestratorMetrics
}

// Orchestrator drives the order lifecycle across the client, product, stock
// and payment services and the order store
type Orchestrator struct {
	store    store.OrderStore
	clients  ClientGateway
	products ProductGateway
	stock    StockGateway
	payments PaymentGateway
	events   EventPublisher
	locker   Locker
	metrics  *metrics.OrchestratorMetrics
	cfg      PaymentConfig
	now      func() time.Time
}

func New(deps Deps, cfg PaymentConfig) *Orchestrator {
	return &Orchestrator{
		store:    deps.Store,
		clients:  deps.Clients,
		products: deps.Products,
		stock:    deps.Stock,
		payments: deps.Payments,
		events:   deps.Events,
		locker:   deps.Locker,
		metrics:  deps.Metrics,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates the request against the client, product and stock
// services, then decreases stock and persists the order as one saga.
// An under-stocked order is persisted as FAILED_NOT_STOCK without touching stock.
func (o *Orchestrator) CreateOrder(ctx context.Context, cmd CreateOrder) (*order.Order, error) {
	if cmd.ClientID == 0 {
		return nil, ErrClientIDRequired
	}
	items, err := buildItems(cmd.Items)
	if err != nil {
		return nil, err
	}

	if err := o.clients.Exists(ctx, cmd.ClientID); err != nil {
		log.Printf("[Orchestrator] Client %d check failed: %v", cmd.ClientID, err)
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrItemsRequired
	}

	newOrder, err := order.New(cmd.ClientID, items, o.now())
	if err != nil {
		return nil, err
	}

	if err := o.products.ValidateSKUs(ctx, newOrder.SKUs()); err != nil {
		log.Printf("[Orchestrator] Product validation failed for client %d: %v", cmd.ClientID, err)
		return nil, err
	}

	short, err := o.checkStock(ctx, newOrder.Items)
	if err != nil {
		return nil, err
	}
	if len(short) > 0 {
		log.Printf("[Orchestrator] Insufficient stock for %v, order rejected without stock changes", short)
		if err := newOrder.TransitionTo(order.StatusFailedNotStock, o.now()); err != nil {
			return nil, err
		}
		if err := o.store.Save(ctx, newOrder); err != nil {
			return nil, fmt.Errorf("save order: %w", err)
		}
		o.metrics.OrderCreated(string(newOrder.Status))
		o.publish(ctx, order.EventOrderCreated, newOrder)
		return newOrder, nil
	}

	if err := o.createSaga(newOrder).run(ctx); err != nil {
		log.Printf("[Orchestrator] Create order for client %d failed: %v", cmd.ClientID, err)
		return nil, err
	}

	log.Printf("[Orchestrator] Order %s created for client %d, total %s", newOrder.ID, newOrder.ClientID, newOrder.Total.StringFixed(2))
	o.metrics.OrderCreated(string(newOrder.Status))
	o.publish(ctx, order.EventOrderCreated, newOrder)
	return newOrder, nil
}

// checkStock reads the stock of every SKU once and returns the SKUs that cannot
// serve the summed quantity of all lines asking for them
func (o *Orchestrator) checkStock(ctx context.Context, items []order.Item) ([]string, error) {
	var skus []string
	demand := make(map[string]int)
	for _, item := range items {
		if _, seen := demand[item.ProductSKU]; !seen {
			skus = append(skus, item.ProductSKU)
		}
		demand[item.ProductSKU] += item.Quantity
	}

	var short []string
	for _, sku := range skus {
		stock, err := o.stock.Get(ctx, sku)
		if err != nil {
			log.Printf("[Orchestrator] Stock lookup for %s failed: %v", sku, err)
			return nil, err
		}
		if stock.Quantity < demand[sku] {
			short = append(short, sku)
		}
	}
	return short, nil
}

func (o *Orchestrator) createSaga(newOrder *order.Order) *saga {
	s := &saga{
		name:          "create-order",
		timeout:       o.cfg.CompensationTimeout,
		onCompensated: o.metrics.Compensated,
	}
	for _, item := range newOrder.Items {
		sku, qty := item.ProductSKU, item.Quantity
		s.add(sagaStep{
			name: "decrease-stock:" + sku,
			action: func(ctx context.Context) error {
				return o.stock.Decrease(ctx, sku, qty)
			},
			compensate: func(ctx context.Context) error {
				return o.stock.Increase(ctx, sku, qty)
			},
		})
	}
	s.add(sagaStep{
		name: "persist-order",
		action: func(ctx context.Context) error {
			return o.store.Save(ctx, newOrder)
		},
	})
	return s
}

func (o *Orchestrator) FindByID(ctx context.Context, id string) (*order.Order, error) {
	return o.store.FindByID(ctx, id)
}

// FindAll returns every order; there is no paging
func (o *Orchestrator) FindAll(ctx context.Context) ([]*order.Order, error) {
	return o.store.FindAll(ctx)
}

// Update replaces client, status, total and items of an order.
// Status is set directly, so it can also reopen or close an order by hand.
func (o *Orchestrator) Update(ctx context.Context, id string, cmd UpdateOrder) (*order.Order, error) {
	if cmd.ClientID == 0 {
		return nil, ErrClientIDRequired
	}
	status, err := order.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	items, err := buildItems(cmd.Items)
	if err != nil {
		return nil, err
	}
	total := order.CalculateTotal(items)
	if cmd.Total != nil {
		if cmd.Total.IsNegative() {
			return nil, fmt.Errorf("%w: %s", order.ErrInvalidTotal, cmd.Total)
		}
		total = *cmd.Total
	}

	current, err := o.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Version != 0 && cmd.Version != current.Version {
		return nil, fmt.Errorf("%w: order %s is at version %d, request has %d",
			order.ErrVersionConflict, id, current.Version, cmd.Version)
	}

	current.ClientID = cmd.ClientID
	current.Status = status
	current.Total = total
	current.UpdatedAt = o.now()
	current.ReplaceItems(items)

	if err := o.store.Save(ctx, current); err != nil {
		return nil, err
	}

	log.Printf("[Orchestrator] Order %s updated (status %s, %d items)", id, current.Status, len(current.Items))
	o.publish(ctx, order.EventOrderUpdated, current)
	return current, nil
}

// Delete removes an order and its items. It reports false when there was nothing to delete.
func (o *Orchestrator) Delete(ctx context.Context, id string) (bool, error) {
	current, err := o.store.FindByID(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := o.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return false, nil
		}
		return false, err
	}

	log.Printf("[Orchestrator] Order %s deleted", id)
	o.publish(ctx, order.EventOrderDeleted, current)
	return true, nil
}

// publish sends an event without failing the operation that produced it
func (o *Orchestrator) publish(ctx context.Context, eventType string, current *order.Order) {
	if o.events == nil {
		return
	}
	event := order.NewEvent(eventType, current, o.now())
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.PublishTimeout)
	defer cancel()
	err := o.events.Publish(publishCtx, event)
	o.metrics.EventPublished(eventType, err == nil)
	if err != nil {
		log.Printf("[Orchestrator] Failed to publish %s for order %s: %v", eventType, current.ID, err)
	}
}

func buildItems(inputs []ItemInput) ([]order.Item, error) {
	items := make([]order.Item, 0, len(inputs))
	for i, in := range inputs {
		item, err := order.NewItem(in.ProductSKU, in.Quantity, in.Price)
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, in.ProductSKU, err)
		}
		items = append(items, item)
	}
	return items, nil
}
