package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyOrder = errors.New("order has no items")
	ErrNotFound   = errors.New("order not found")
)

type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

type InvalidUnitPriceError struct {
	ProductID string
	UnitPrice string
}

func (e *InvalidUnitPriceError) Error() string {
	return fmt.Sprintf("invalid unit price %s for product %s", e.UnitPrice, e.ProductID)
}

type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

type ProductNotFoundError struct {
	ProductIDs []string
}

func (e *ProductNotFoundError) Error() string {
	return "product not found: " + strings.Join(e.ProductIDs, ", ")
}

// StockShortage names one product that could not cover the requested quantity.
type StockShortage struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ids = append(ids, s.ProductID)
	}
	return "insufficient stock: " + strings.Join(ids, ", ")
}
