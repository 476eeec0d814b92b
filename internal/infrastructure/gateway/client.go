package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ClientGateway talks to the client (customer) service
type ClientGateway struct {
	http *httpClient
}

func NewClientGateway(baseURL string, client *http.Client) *ClientGateway {
	return &ClientGateway{http: newHTTPClient("clients", baseURL, client)}
}

// Exists returns ErrClientNotFound when the client service does not know the id
func (g *ClientGateway) Exists(ctx context.Context, clientID int64) error {
	_, err := g.Get(ctx, clientID)
	return err
}

// Get fetches the client's contact details
func (g *ClientGateway) Get(ctx context.Context, clientID int64) (*Client, error) {
	data, err := g.http.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/clients/%d", clientID),
	})
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrClientNotFound, clientID)
	}
	if err != nil {
		return nil, err
	}

	client := &Client{ID: clientID}
	if err := g.http.decode(data, client); err != nil {
		return nil, err
	}
	return client, nil
}
