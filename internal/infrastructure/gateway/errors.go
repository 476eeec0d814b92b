package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrProductNotFound = errors.New("product not found")
	ErrStockNotFound   = errors.New("stock not found")
	ErrPaymentNotFound = errors.New("payment not found")

	// errNotFound is the transport-level 404 that each gateway maps to its own error
	errNotFound = errors.New("resource not found")
)

// ProductNotFoundError carries the SKUs the product service could not resolve
type ProductNotFoundError struct {
	SKUs []string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found for skus: %s", strings.Join(e.SKUs, ", "))
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// StatusError is returned for any non-2xx response other than 404
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d: %s", e.Service, e.Code, e.Body)
}
