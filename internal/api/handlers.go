package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/example/order-orchestrator/internal/api/middleware"
	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
	"github.com/example/order-orchestrator/internal/orchestrator"
	"github.com/go-chi/chi/v5"
)

// OrderService is the part of the orchestrator the HTTP layer drives
type OrderService interface {
	CreateOrder(ctx context.Context, cmd orchestrator.CreateOrder) (*order.Order, error)
	FindByID(ctx context.Context, id string) (*order.Order, error)
	FindAll(ctx context.Context) ([]*order.Order, error)
	Update(ctx context.Context, id string, cmd orchestrator.UpdateOrder) (*order.Order, error)
	Delete(ctx context.Context, id string) (bool, error)
	ProcessPayment(ctx context.Context, orderID, method string) (*order.Order, error)

	AddItem(ctx context.Context, orderID string, in orchestrator.ItemInput) (*order.Item, error)
	FindItem(ctx context.Context, itemID string) (*order.Item, error)
	ListItems(ctx context.Context) ([]order.Item, error)
	UpdateItem(ctx context.Context, itemID string, cmd orchestrator.UpdateItem) (*order.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
}

type Handlers struct {
	orders OrderService
}

func NewHandlers(orders OrderService) *Handlers {
	return &Handlers{orders: orders}
}

// Response bodies. Money is rendered with two decimals as a string.

type itemResponse struct {
	ID         string `json:"id"`
	OrderID    string `json:"orderId"`
	ProductSKU string `json:"productSku"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
}

type orderResponse struct {
	ID        string         `json:"id"`
	ClientID  int64          `json:"clientId"`
	Total     string         `json:"total"`
	Status    order.Status   `json:"status"`
	Items     []itemResponse `json:"items"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func toItemResponse(item order.Item) itemResponse {
	return itemResponse{
		ID:         item.ID,
		OrderID:    item.OrderID,
		ProductSKU: item.ProductSKU,
		Quantity:   item.Quantity,
		Price:      item.Price.StringFixed(2),
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = toItemResponse(item)
	}
	return orderResponse{
		ID:        o.ID,
		ClientID:  o.ClientID,
		Total:     o.Total.StringFixed(2),
		Status:    o.Status,
		Items:     items,
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// Order Handlers

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd orchestrator.CreateOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.FindAll(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd orchestrator.UpdateOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.orders.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if !deleted {
		respondError(w, "order not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProcessPayment answers 202 with the unchanged order while a PIX charge is still open
func (h *Handlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("paymentMethod")

	o, err := h.orders.ProcessPayment(r.Context(), chi.URLParam(r, "id"), method)
	if err != nil {
		if orchestrator.Classify(err) == orchestrator.CategoryPending && o != nil {
			respondJSON(w, http.StatusAccepted, toOrderResponse(o))
			return
		}
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// Order Item Handlers

type createItemRequest struct {
	OrderID string `json:"orderId"`
	orchestrator.ItemInput
}

func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		respondError(w, "orderId required", http.StatusBadRequest)
		return
	}

	item, err := h.orders.AddItem(r.Context(), req.OrderID, req.ItemInput)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toItemResponse(*item))
}

func (h *Handlers) GetItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.ListItems(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]itemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.orders.FindItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toItemResponse(*item))
}

func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var cmd orchestrator.UpdateItem
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.orders.UpdateItem(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toItemResponse(*item))
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleError maps an orchestrator error to a status code. Internal failures
// are logged and answered with a generic message.
func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch orchestrator.Classify(err) {
	case orchestrator.CategoryInvalid:
		respondError(w, err.Error(), http.StatusBadRequest)
	case orchestrator.CategoryNotFound:
		var pnf *gateway.ProductNotFoundError
		if errors.As(err, &pnf) {
			respondJSON(w, http.StatusNotFound, map[string]any{"error": gateway.ErrProductNotFound.Error(), "skus": pnf.SKUs})
			return
		}
		respondError(w, err.Error(), http.StatusNotFound)
	case orchestrator.CategoryConflict:
		respondError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("[API] %s %s failed (caller %q): %v", r.Method, r.URL.Path, middleware.Subject(r.Context()), err)
		respondError(w, "processing failed", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
