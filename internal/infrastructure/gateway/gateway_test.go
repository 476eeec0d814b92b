package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// ============================================
// Client Gateway Tests
// ============================================

func TestClientGateway_Exists(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/clients/5":
			_ = json.NewEncoder(w).Encode(Client{ID: 5, Name: "Ana", Email: "ana@example.com"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	g := NewClientGateway(srv.URL, srv.Client())
	ctx := context.Background()

	require.NoError(t, g.Exists(ctx, 5))

	err := g.Exists(ctx, 6)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestClientGateway_Get(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"name":"Ana","email":"ana@example.com"}`))
	})
	g := NewClientGateway(srv.URL+"/", srv.Client())

	c, err := g.Get(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", c.Email)
}

func TestClientGateway_ServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	g := NewClientGateway(srv.URL, srv.Client())

	err := g.Exists(context.Background(), 5)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "clients", statusErr.Service)
	assert.NotErrorIs(t, err, ErrClientNotFound)
}

// ============================================
// Product Gateway Tests
// ============================================

func TestProductGateway_ValidateSKUs_AllFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/sku", r.URL.Path)
		assert.Equal(t, []string{"SKU1", "SKU2"}, r.URL.Query()["skus"])
		_, _ = w.Write([]byte(`[{"id":1,"productSku":"SKU1"},{"id":2,"productSku":"SKU2"}]`))
	})
	g := NewProductGateway(srv.URL, srv.Client())

	err := g.ValidateSKUs(context.Background(), []string{"SKU1", "SKU2"})

	assert.NoError(t, err)
}

func TestProductGateway_ValidateSKUs_NotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	g := NewProductGateway(srv.URL, srv.Client())

	err := g.ValidateSKUs(context.Background(), []string{"SKU1", "SKU2"})

	assert.ErrorIs(t, err, ErrProductNotFound)
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"SKU1", "SKU2"}, notFound.SKUs)
}

func TestProductGateway_ValidateSKUs_PartialAnswer(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"productSku":"SKU1"}]`))
	})
	g := NewProductGateway(srv.URL, srv.Client())

	err := g.ValidateSKUs(context.Background(), []string{"SKU1", "SKU9"})

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"SKU9"}, notFound.SKUs)
	assert.Contains(t, err.Error(), "SKU9")
}

// ============================================
// Stock Gateway Tests
// ============================================

func TestStockGateway_Get(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stocks/sku/SKU100" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"sku":"SKU100","quantity":10}`))
	})
	g := NewStockGateway(srv.URL, srv.Client())
	ctx := context.Background()

	stock, err := g.Get(ctx, "SKU100")
	require.NoError(t, err)
	assert.Equal(t, 10, stock.Quantity)

	_, err = g.Get(ctx, "SKU404")
	assert.ErrorIs(t, err, ErrStockNotFound)
}

func TestStockGateway_DecreaseAndIncrease(t *testing.T) {
	var calls []string
	var quantities []int
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body stockChange
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, r.URL.Path)
		quantities = append(quantities, body.Quantity)
		w.WriteHeader(http.StatusNoContent)
	})
	g := NewStockGateway(srv.URL, srv.Client())
	ctx := context.Background()

	require.NoError(t, g.Decrease(ctx, "SKU100", 2))
	require.NoError(t, g.Increase(ctx, "SKU100", 2))

	assert.Equal(t, []string{"/stocks/sku/SKU100/decrease", "/stocks/sku/SKU100/increase"}, calls)
	assert.Equal(t, []int{2, 2}, quantities)
}

// ============================================
// Payment Gateway Tests
// ============================================

func TestPaymentGateway_TokenAndCharge(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/generateToken":
			var req TokenRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "client_credentials", req.GrantType)
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":300}`))
		case "/payment/card":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			var req CardChargeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "seller-1", req.SellerID)
			assert.Equal(t, 20.0, req.Amount)
			_, _ = w.Write([]byte(`{"paymentId":"p-1","status":"approved","orderId":"o-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	g := NewPaymentGateway(srv.URL, srv.Client())
	ctx := context.Background()

	token, err := g.GenerateToken(ctx, TokenRequest{GrantType: "client_credentials", ClientID: "seller-1", Scope: "oob"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.AccessToken)

	resp, err := g.ChargeCard(ctx, CardChargeRequest{SellerID: "seller-1", Amount: 20, Currency: "BRL"}, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)
	assert.Equal(t, "p-1", resp.PaymentID)
}

func TestPaymentGateway_EmptyToken(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	g := NewPaymentGateway(srv.URL, srv.Client())

	_, err := g.GenerateToken(context.Background(), TokenRequest{})

	assert.Error(t, err)
}

func TestPaymentGateway_QRAndStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/generateQR":
			_, _ = w.Write([]byte(`{"paymentId":"qr-1","status":"PENDING","additionalData":{"qr":"000201"}}`))
		case "/payment/qr-1":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"status":"APPROVED"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	g := NewPaymentGateway(srv.URL, srv.Client())
	ctx := context.Background()

	qr, err := g.GenerateQR(ctx, QRChargeRequest{Amount: 10, Currency: "BRL", OrderID: "o-1", CustomerID: "5"}, "tok")
	require.NoError(t, err)
	assert.Equal(t, "qr-1", qr.PaymentID)
	assert.Equal(t, "000201", qr.AdditionalData["qr"])

	status, err := g.GetStatus(ctx, "qr-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", status.Status)
	assert.Equal(t, "qr-1", status.PaymentID)

	_, err = g.GetStatus(ctx, "missing", "tok")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

// ============================================
// Circuit Breaker Tests
// ============================================

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	hits := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	})
	g := NewStockGateway(srv.URL, srv.Client())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.Get(ctx, "SKU1")
		require.Error(t, err)
	}

	_, err := g.Get(ctx, "SKU1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, hits)
}

func TestCircuitBreaker_NotFoundDoesNotTrip(t *testing.T) {
	hits := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	})
	g := NewClientGateway(srv.URL, srv.Client())
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		assert.ErrorIs(t, g.Exists(ctx, 1), ErrClientNotFound)
	}
	assert.Equal(t, 8, hits)
}
