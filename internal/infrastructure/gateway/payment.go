package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// PaymentGateway issues tokens and charges through the payment service
type PaymentGateway struct {
	http *httpClient
}

func NewPaymentGateway(baseURL string, client *http.Client) *PaymentGateway {
	return &PaymentGateway{http: newHTTPClient("payments", baseURL, client)}
}

func (g *PaymentGateway) GenerateToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	data, err := g.http.do(ctx, request{
		method: http.MethodPost,
		path:   "/payment/generateToken",
		body:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment token: %w", err)
	}

	var token TokenResponse
	if err := g.http.decode(data, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("payment service returned an empty access token")
	}
	return &token, nil
}

func (g *PaymentGateway) ChargeCard(ctx context.Context, req CardChargeRequest, token string) (*CardChargeResponse, error) {
	data, err := g.http.do(ctx, request{
		method: http.MethodPost,
		path:   "/payment/card",
		token:  token,
		body:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to charge card: %w", err)
	}

	var resp CardChargeResponse
	if err := g.http.decode(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *PaymentGateway) GenerateQR(ctx context.Context, req QRChargeRequest, token string) (*QRChargeResponse, error) {
	data, err := g.http.do(ctx, request{
		method: http.MethodPost,
		path:   "/payment/generateQR",
		token:  token,
		body:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR charge: %w", err)
	}

	var resp QRChargeResponse
	if err := g.http.decode(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *PaymentGateway) GetStatus(ctx context.Context, paymentID, token string) (*PaymentStatus, error) {
	data, err := g.http.do(ctx, request{
		method: http.MethodGet,
		path:   "/payment/" + url.PathEscape(paymentID),
		token:  token,
	})
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment status: %w", err)
	}

	status := &PaymentStatus{PaymentID: paymentID}
	if err := g.http.decode(data, status); err != nil {
		return nil, err
	}
	return status, nil
}
