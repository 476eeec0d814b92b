package orchestrator

import (
	"github.com/shopspring/decimal"
)

type ItemInput struct {
	ProductSKU string          `json:"productSku"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type CreateOrder struct {
	ClientID int64       `json:"clientId"`
	Items    []ItemInput `json:"items"`
}

// UpdateOrder replaces an order wholesale. A nil Total is recomputed from Items;
// a non-zero Version must match the stored one.
type UpdateOrder struct {
	ClientID int64            `json:"clientId"`
	Status   string           `json:"status"`
	Total    *decimal.Decimal `json:"total,omitempty"`
	Items    []ItemInput      `json:"items"`
	Version  int              `json:"version,omitempty"`
}

// UpdateItem replaces an item; a different OrderID moves it to that order
type UpdateItem struct {
	OrderID string `json:"orderId,omitempty"`
	ItemInput
}
