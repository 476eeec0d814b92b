package gateway

// Client is the subset of the client service's representation used here
type Client struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product is returned by the product service SKU lookup
type Product struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	ProductSKU string  `json:"productSku"`
	Price      float64 `json:"price"`
}

type Stock struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type stockChange struct {
	Quantity int `json:"quantity"`
}

// Payment service DTOs

type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

type CardChargeRequest struct {
	SellerID string         `json:"seller_id"`
	Amount   float64        `json:"amount"`
	Currency string         `json:"currency"`
	Order    ChargeOrder    `json:"order"`
	Customer ChargeCustomer `json:"customer"`
	Credit   ChargeCredit   `json:"credit"`
}

type ChargeOrder struct {
	OrderID string       `json:"order_id"`
	Items   []ChargeItem `json:"items"`
}

type ChargeItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitAmount float64 `json:"unit_amount"`
}

type ChargeCustomer struct {
	CustomerID string `json:"customer_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type ChargeCredit struct {
	Card         ChargeCard `json:"card"`
	Installments int        `json:"installments"`
}

type ChargeCard struct {
	NumberToken     string `json:"number_token"`
	CardholderName  string `json:"cardholder_name"`
	SecurityCode    string `json:"security_code"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
}

type CardChargeResponse struct {
	PaymentID         string  `json:"paymentId"`
	Status            string  `json:"status"`
	Description       string  `json:"description"`
	AuthorizationCode string  `json:"authorizationCode"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	OrderID           string  `json:"orderId"`
}

type QRChargeRequest struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	OrderID    string  `json:"order_id"`
	CustomerID string  `json:"customer_id"`
}

type QRChargeResponse struct {
	PaymentID      string         `json:"paymentId"`
	Status         string         `json:"status"`
	Description    string         `json:"description"`
	AdditionalData map[string]any `json:"additionalData"`
}

type PaymentStatus struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}
