package orchestrator

import (
	"errors"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
)

var (
	ErrClientIDRequired         = errors.New("client id required")
	ErrItemsRequired            = errors.New("at least one item required")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrPaymentFailed            = errors.New("payment processing failed")
	ErrPaymentPending           = errors.New("payment status not determined yet")
	ErrPaymentInProgress        = errors.New("payment already in progress for this order")
)

// Category groups errors by how a caller should react to them
type Category int

const (
	CategoryInternal Category = iota
	CategoryInvalid
	CategoryNotFound
	CategoryConflict
	CategoryPending
)

func (c Category) String() string {
	switch c {
	case CategoryInvalid:
		return "invalid"
	case CategoryNotFound:
		return "not_found"
	case CategoryConflict:
		return "conflict"
	case CategoryPending:
		return "pending"
	default:
		return "internal"
	}
}

var (
	invalidErrors = []error{
		ErrClientIDRequired,
		ErrItemsRequired,
		ErrUnsupportedPaymentMethod,
		order.ErrEmptyOrder,
		order.ErrInvalidQuantity,
		order.ErrInvalidPrice,
		order.ErrInvalidTotal,
		order.ErrInvalidStatus,
	}
	notFoundErrors = []error{
		gateway.ErrClientNotFound,
		gateway.ErrProductNotFound,
		gateway.ErrStockNotFound,
		order.ErrOrderNotFound,
		order.ErrItemNotFound,
	}
	conflictErrors = []error{
		order.ErrVersionConflict,
		order.ErrInvalidTransition,
		ErrPaymentInProgress,
	}
)

// Classify maps an error returned by the Orchestrator to its Category.
// Payment failures stay internal even when the payment service answered 404.
func Classify(err error) Category {
	switch {
	case errors.Is(err, ErrPaymentPending):
		return CategoryPending
	case errors.Is(err, ErrPaymentFailed):
		return CategoryInternal
	case isAny(err, invalidErrors):
		return CategoryInvalid
	case isAny(err, notFoundErrors):
		return CategoryNotFound
	case isAny(err, conflictErrors):
		return CategoryConflict
	default:
		return CategoryInternal
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
