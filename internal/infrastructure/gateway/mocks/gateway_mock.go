package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
)

// MockClientGateway is a mock client service for testing
type MockClientGateway struct {
	mu      sync.Mutex
	clients map[int64]*gateway.Client

	ExistsCalls []int64
	Err         error
}

func NewMockClientGateway(ids ...int64) *MockClientGateway {
	m := &MockClientGateway{clients: make(map[int64]*gateway.Client)}
	for _, id := range ids {
		m.clients[id] = &gateway.Client{ID: id, Name: fmt.Sprintf("client-%d", id), Email: fmt.Sprintf("client%d@example.com", id)}
	}
	return m
}

func (m *MockClientGateway) Exists(ctx context.Context, clientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls = append(m.ExistsCalls, clientID)
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.clients[clientID]; !ok {
		return fmt.Errorf("%w: %d", gateway.ErrClientNotFound, clientID)
	}
	return nil
}

func (m *MockClientGateway) Get(ctx context.Context, clientID int64) (*gateway.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gateway.ErrClientNotFound, clientID)
	}
	return c, nil
}

// MockProductGateway knows a fixed catalogue of SKUs
type MockProductGateway struct {
	mu   sync.Mutex
	skus map[string]bool

	ValidateCalls [][]string
	Err           error
}

func NewMockProductGateway(skus ...string) *MockProductGateway {
	m := &MockProductGateway{skus: make(map[string]bool)}
	for _, sku := range skus {
		m.skus[sku] = true
	}
	return m
}

func (m *MockProductGateway) ValidateSKUs(ctx context.Context, skus []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidateCalls = append(m.ValidateCalls, skus)
	if m.Err != nil {
		return m.Err
	}
	var missing []string
	for _, sku := range skus {
		if !m.skus[sku] {
			missing = append(missing, sku)
		}
	}
	if len(missing) > 0 {
		return &gateway.ProductNotFoundError{SKUs: missing}
	}
	return nil
}

// StockCall records a stock mutation
type StockCall struct {
	Op       string
	SKU      string
	Quantity int
}

// MockStockGateway keeps stock levels in memory and records every call
type MockStockGateway struct {
	mu     sync.Mutex
	levels map[string]int

	GetCalls      []string
	MutationCalls []StockCall
	GetErr        error
	// DecreaseErr maps a SKU to the error its Decrease call returns
	DecreaseErr map[string]error
	IncreaseErr error
}

func NewMockStockGateway(levels map[string]int) *MockStockGateway {
	m := &MockStockGateway{levels: make(map[string]int), DecreaseErr: make(map[string]error)}
	for sku, qty := range levels {
		m.levels[sku] = qty
	}
	return m
}

func (m *MockStockGateway) Get(ctx context.Context, sku string) (*gateway.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = append(m.GetCalls, sku)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	qty, ok := m.levels[sku]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrStockNotFound, sku)
	}
	return &gateway.Stock{SKU: sku, Quantity: qty}, nil
}

func (m *MockStockGateway) Decrease(ctx context.Context, sku string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MutationCalls = append(m.MutationCalls, StockCall{Op: "decrease", SKU: sku, Quantity: quantity})
	if err := m.DecreaseErr[sku]; err != nil {
		return err
	}
	m.levels[sku] -= quantity
	return nil
}

func (m *MockStockGateway) Increase(ctx context.Context, sku string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MutationCalls = append(m.MutationCalls, StockCall{Op: "increase", SKU: sku, Quantity: quantity})
	if m.IncreaseErr != nil {
		return m.IncreaseErr
	}
	m.levels[sku] += quantity
	return nil
}

// Level returns the current stock for a SKU
func (m *MockStockGateway) Level(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[sku]
}

// MockPaymentGateway returns scripted payment answers
type MockPaymentGateway struct {
	mu sync.Mutex

	TokenCalls  []gateway.TokenRequest
	CardCalls   []gateway.CardChargeRequest
	QRCalls     []gateway.QRChargeRequest
	StatusCalls []string
	Tokens      []string

	TokenErr  error
	CardErr   error
	QRErr     error
	StatusErr error

	CardStatus  string
	QRPaymentID string
	// Statuses are returned by successive GetStatus calls; the last one repeats
	Statuses []string
	// NotFoundCalls makes the first GetStatus calls fail with gateway.ErrPaymentNotFound
	NotFoundCalls int
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{QRPaymentID: "pay-qr-1"}
}

func (m *MockPaymentGateway) GenerateToken(ctx context.Context, req gateway.TokenRequest) (*gateway.TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenCalls = append(m.TokenCalls, req)
	if m.TokenErr != nil {
		return nil, m.TokenErr
	}
	return &gateway.TokenResponse{AccessToken: "token-abc", TokenType: "Bearer", ExpiresIn: 300}, nil
}

func (m *MockPaymentGateway) ChargeCard(ctx context.Context, req gateway.CardChargeRequest, token string) (*gateway.CardChargeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CardCalls = append(m.CardCalls, req)
	m.Tokens = append(m.Tokens, token)
	if m.CardErr != nil {
		return nil, m.CardErr
	}
	return &gateway.CardChargeResponse{
		PaymentID: "pay-card-1",
		Status:    m.CardStatus,
		Amount:    req.Amount,
		Currency:  req.Currency,
		OrderID:   req.Order.OrderID,
	}, nil
}

func (m *MockPaymentGateway) GenerateQR(ctx context.Context, req gateway.QRChargeRequest, token string) (*gateway.QRChargeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QRCalls = append(m.QRCalls, req)
	m.Tokens = append(m.Tokens, token)
	if m.QRErr != nil {
		return nil, m.QRErr
	}
	return &gateway.QRChargeResponse{PaymentID: m.QRPaymentID, Status: "PENDING"}, nil
}

func (m *MockPaymentGateway) GetStatus(ctx context.Context, paymentID, token string) (*gateway.PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls = append(m.StatusCalls, paymentID)
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	if len(m.StatusCalls) <= m.NotFoundCalls {
		return nil, gateway.ErrPaymentNotFound
	}
	status := "PENDING"
	if n := len(m.Statuses); n > 0 {
		idx := len(m.StatusCalls) - 1
		if idx >= n {
			idx = n - 1
		}
		status = m.Statuses[idx]
	}
	return &gateway.PaymentStatus{PaymentID: paymentID, Status: status}, nil
}

// Calls returns the total number of payment service calls
func (m *MockPaymentGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TokenCalls) + len(m.CardCalls) + len(m.QRCalls) + len(m.StatusCalls)
}
