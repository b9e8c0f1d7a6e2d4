package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestedItem is one line of a placement request. It is never persisted
// directly; it is validated and converted into an OrderItem.
type RequestedItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

type OrderItem struct {
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
	Items     []OrderItem `json:"orderItems"`
}

// Total is the sum of quantity times unit price over all items. Unit prices
// were captured at order time and are not re-read from the catalog.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
