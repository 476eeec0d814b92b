package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// StockGateway reads and mutates inventory levels per SKU
type StockGateway struct {
	http *httpClient
}

func NewStockGateway(baseURL string, client *http.Client) *StockGateway {
	return &StockGateway{http: newHTTPClient("stock", baseURL, client)}
}

func (g *StockGateway) Get(ctx context.Context, sku string) (*Stock, error) {
	data, err := g.http.do(ctx, request{
		method: http.MethodGet,
		path:   "/stocks/sku/" + url.PathEscape(sku),
	})
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrStockNotFound, sku)
	}
	if err != nil {
		return nil, err
	}

	stock := &Stock{SKU: sku}
	if err := g.http.decode(data, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

func (g *StockGateway) Decrease(ctx context.Context, sku string, quantity int) error {
	return g.change(ctx, sku, "decrease", quantity)
}

// Increase is the compensating action for Decrease
func (g *StockGateway) Increase(ctx context.Context, sku string, quantity int) error {
	return g.change(ctx, sku, "increase", quantity)
}

func (g *StockGateway) change(ctx context.Context, sku, op string, quantity int) error {
	_, err := g.http.do(ctx, request{
		method: http.MethodPut,
		path:   "/stocks/sku/" + url.PathEscape(sku) + "/" + op,
		body:   stockChange{Quantity: quantity},
	})
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("%w: %s", ErrStockNotFound, sku)
	}
	return err
}
