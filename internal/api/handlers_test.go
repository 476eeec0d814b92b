package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/order-orchestrator/internal/auth"
	gwmocks "github.com/example/order-orchestrator/internal/infrastructure/gateway/mocks"
	"github.com/example/order-orchestrator/internal/infrastructure/store/mocks"
	"github.com/example/order-orchestrator/internal/metrics"
	"github.com/example/order-orchestrator/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	handler  http.Handler
	jwt      *auth.JWTService
	payments *gwmocks.MockPaymentGateway
	stock    *gwmocks.MockStockGateway
	store    *mocks.MockOrderStore
}

func newTestAPI(t *testing.T, timeout time.Duration) *testAPI {
	t.Helper()
	a := &testAPI{
		jwt:      auth.NewJWTService("test-secret-key-for-the-api-tests", "order-orchestrator", time.Hour),
		payments: gwmocks.NewMockPaymentGateway(),
		stock:    gwmocks.NewMockStockGateway(map[string]int{"SKU100": 10, "SKU200": 3}),
		store:    mocks.NewMockOrderStore(),
	}
	orch := orchestrator.New(orchestrator.Deps{
		Store:    a.store,
		Clients:  gwmocks.NewMockClientGateway(5),
		Products: gwmocks.NewMockProductGateway("SKU100", "SKU200"),
		Stock:    a.stock,
		Payments: a.payments,
	}, orchestrator.PaymentConfig{
		SellerID:     "seller-1",
		PollInterval: time.Hour,
	})

	reg := prometheus.NewRegistry()
	a.handler = NewRouter(NewHandlers(orch), RouterConfig{
		JWT:            a.jwt,
		Metrics:        metrics.NewServerMetrics(reg, "api"),
		Gatherer:       reg,
		RequestTimeout: timeout,
	})
	return a
}

func (a *testAPI) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := a.jwt.GenerateToken("test-suite", role)
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, role))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (a *testAPI) createOrder(t *testing.T) orderResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/orders", auth.RoleOperator, map[string]any{
		"clientId": 5,
		"items":    []map[string]any{{"productSku": "SKU100", "quantity": 2, "price": 10.00}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[orderResponse](t, rec)
}

// ============================================
// Order Endpoint Tests
// ============================================

func TestAPI_Health(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_CreateOrder(t *testing.T) {
	a := newTestAPI(t, 0)

	o := a.createOrder(t)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, int64(5), o.ClientID)
	assert.Equal(t, "20.00", o.Total)
	assert.Equal(t, "CREATED", string(o.Status))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "10.00", o.Items[0].Price)
	assert.Equal(t, 8, a.stock.Level("SKU100"))
}

func TestAPI_CreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode int
		wantBody string
	}{
		{"malformed body", "{not json", http.StatusBadRequest, "invalid request body"},
		{"missing client", map[string]any{"items": []map[string]any{{"productSku": "SKU100", "quantity": 1, "price": 1}}}, http.StatusBadRequest, "client id required"},
		{"no items", map[string]any{"clientId": 5}, http.StatusBadRequest, "at least one item"},
		{"zero quantity", map[string]any{"clientId": 5, "items": []map[string]any{{"productSku": "SKU100", "quantity": 0, "price": 1}}}, http.StatusBadRequest, "quantity"},
		{"unknown client", map[string]any{"clientId": 42, "items": []map[string]any{{"productSku": "SKU100", "quantity": 1, "price": 1}}}, http.StatusNotFound, "client not found"},
		{"unknown product", map[string]any{"clientId": 5, "items": []map[string]any{{"productSku": "SKU999", "quantity": 1, "price": 1}}}, http.StatusNotFound, `"skus":["SKU999"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, 0)

			rec := a.do(t, http.MethodPost, "/orders", auth.RoleOperator, tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestAPI_CreateOrder_InsufficientStockIsCreated(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodPost, "/orders", auth.RoleOperator, map[string]any{
		"clientId": 5,
		"items":    []map[string]any{{"productSku": "SKU200", "quantity": 4, "price": "1.50"}},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "FAILED_NOT_STOCK", string(decodeBody[orderResponse](t, rec).Status))
	assert.Equal(t, 3, a.stock.Level("SKU200"))
}

func TestAPI_GetOrder(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)

	rec := a.do(t, http.MethodGet, "/orders/"+created.ID, auth.RoleOperator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeBody[orderResponse](t, rec).ID)

	rec = a.do(t, http.MethodGet, "/orders/missing", auth.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ListOrders(t *testing.T) {
	a := newTestAPI(t, 0)
	a.createOrder(t)
	a.createOrder(t)

	rec := a.do(t, http.MethodGet, "/orders", auth.RoleOperator, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]orderResponse](t, rec), 2)
}

func TestAPI_RequiresToken(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodGet, "/orders", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_UpdateOrder_AdminOnly(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)
	body := map[string]any{
		"clientId": 5,
		"status":   "CANCELLED",
		"items":    []map[string]any{{"productSku": "SKU200", "quantity": 1, "price": "3.30"}},
	}

	rec := a.do(t, http.MethodPut, "/orders/"+created.ID, auth.RoleOperator, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, "/orders/"+created.ID, auth.RoleAdmin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[orderResponse](t, rec)
	assert.Equal(t, "CANCELLED", string(updated.Status))
	assert.Equal(t, "3.30", updated.Total)
	assert.Equal(t, 2, updated.Version)
}

func TestAPI_UpdateOrder_Conflict(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)

	rec := a.do(t, http.MethodPut, "/orders/"+created.ID, auth.RoleAdmin, map[string]any{
		"clientId": 5,
		"status":   "CREATED",
		"version":  7,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_DeleteOrder(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)

	rec := a.do(t, http.MethodDelete, "/orders/"+created.ID, auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodDelete, "/orders/"+created.ID, auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================
// Payment Endpoint Tests
// ============================================

func TestAPI_ProcessPayment_Card(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)
	a.payments.CardStatus = "APPROVED"

	rec := a.do(t, http.MethodPost, "/orders/"+created.ID+"/payment?paymentMethod=card", auth.RoleOperator, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CLOSED_SUCCESS", string(decodeBody[orderResponse](t, rec).Status))
}

func TestAPI_ProcessPayment_UnsupportedMethod(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)

	rec := a.do(t, http.MethodPost, "/orders/"+created.ID+"/payment?paymentMethod=BOLETO", auth.RoleOperator, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, a.payments.Calls())
}

func TestAPI_ProcessPayment_PendingAtDeadline(t *testing.T) {
	a := newTestAPI(t, 50*time.Millisecond)
	created := a.createOrder(t)

	rec := a.do(t, http.MethodPost, "/orders/"+created.ID+"/payment?paymentMethod=PIX", auth.RoleOperator, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "CREATED", string(decodeBody[orderResponse](t, rec).Status))
}

func TestAPI_ProcessPayment_GatewayFailureHidesDetail(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)
	a.payments.CardErr = errors.New("dial tcp 10.0.0.7:443: connection refused")

	rec := a.do(t, http.MethodPost, "/orders/"+created.ID+"/payment?paymentMethod=CARD", auth.RoleOperator, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"processing failed"}`, rec.Body.String())
}

func TestAPI_ProcessPayment_AlreadyClosed(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)
	a.payments.CardStatus = "DECLINED"
	path := "/orders/" + created.ID + "/payment?paymentMethod=CARD"

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, path, auth.RoleOperator, nil).Code)
	rec := a.do(t, http.MethodPost, path, auth.RoleOperator, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ============================================
// Order Item Endpoint Tests
// ============================================

func TestAPI_OrderItems(t *testing.T) {
	a := newTestAPI(t, 0)
	created := a.createOrder(t)

	rec := a.do(t, http.MethodPost, "/order-items", auth.RoleOperator, map[string]any{
		"orderId": created.ID, "productSku": "SKU200", "quantity": 1, "price": "2.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeBody[itemResponse](t, rec)
	assert.Equal(t, created.ID, added.OrderID)

	rec = a.do(t, http.MethodGet, "/order-items", auth.RoleOperator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]itemResponse](t, rec), 2)

	rec = a.do(t, http.MethodPut, "/order-items/"+added.ID, auth.RoleOperator, map[string]any{
		"productSku": "SKU200", "quantity": 5, "price": "2.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decodeBody[itemResponse](t, rec).Quantity)

	rec = a.do(t, http.MethodGet, "/order-items/"+added.ID, auth.RoleOperator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decodeBody[itemResponse](t, rec).Quantity)

	rec = a.do(t, http.MethodDelete, "/order-items/"+added.ID, auth.RoleOperator, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/order-items/"+added.ID, auth.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateItem_Validation(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := a.do(t, http.MethodPost, "/order-items", auth.RoleOperator, map[string]any{
		"productSku": "SKU200", "quantity": 1, "price": "2.00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/order-items", auth.RoleOperator, map[string]any{
		"orderId": "missing", "productSku": "SKU200", "quantity": 1, "price": "2.00",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================
// Metrics Endpoint Tests
// ============================================

func TestAPI_MetricsEndpoint(t *testing.T) {
	a := newTestAPI(t, 0)
	a.createOrder(t)

	rec := a.do(t, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `orders_api_http_requests_total{handler="POST /orders`), body)
	assert.Contains(t, body, `status="201"`)
}
