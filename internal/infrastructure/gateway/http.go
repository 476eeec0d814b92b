package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const maxErrorBody = 512

// httpClient sends JSON requests to one downstream service through a circuit breaker
type httpClient struct {
	service string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func newHTTPClient(service, baseURL string, client *http.Client) *httpClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[[]byte](breakerSettings(service)),
	}
}

func breakerSettings(service string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[Gateway] Circuit breaker %s: %s -> %s", name, from, to)
		},
		// A 404 is a business answer, not a sign the service is unhealthy
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

// do executes the request and returns the response body of a 2xx answer
func (c *httpClient) do(ctx context.Context, req request) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, req)
	})
}

func (c *httpClient) roundTrip(ctx context.Context, req request) ([]byte, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", c.service, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.service, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.service, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &StatusError{Service: c.service, Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// decode unmarshals a response body, tolerating empty bodies when out is nil
func (c *httpClient) decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}
	return nil
}
