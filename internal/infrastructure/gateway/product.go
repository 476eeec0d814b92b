package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// ProductGateway validates SKUs against the product catalogue
type ProductGateway struct {
	http *httpClient
}

func NewProductGateway(baseURL string, client *http.Client) *ProductGateway {
	return &ProductGateway{http: newHTTPClient("products", baseURL, client)}
}

// ValidateSKUs checks the whole batch in one call. A 404 means none resolved;
// a partial answer reports only the SKUs missing from the response.
func (g *ProductGateway) ValidateSKUs(ctx context.Context, skus []string) error {
	data, err := g.http.do(ctx, request{
		method: http.MethodGet,
		path:   "/products/sku",
		query:  url.Values{"skus": skus},
	})
	if errors.Is(err, errNotFound) {
		return &ProductNotFoundError{SKUs: skus}
	}
	if err != nil {
		return err
	}

	var products []Product
	if err := g.http.decode(data, &products); err != nil {
		return err
	}
	if products == nil {
		return nil
	}

	found := make(map[string]bool, len(products))
	for _, p := range products {
		found[p.ProductSKU] = true
	}
	var missing []string
	for _, sku := range skus {
		if !found[sku] {
			missing = append(missing, sku)
		}
	}
	if len(missing) > 0 {
		return &ProductNotFoundError{SKUs: missing}
	}
	return nil
}
