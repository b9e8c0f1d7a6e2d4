package orders

import (
	"context"
	"fmt"
)

// Service places orders. It holds no state besides the injected store; each
// call is an independent unit of work with at-most-once semantics.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// PlaceOrder validates the requested items against current stock and, if all
// of them can be covered, atomically decrements stock and creates the order.
// On failure nothing is persisted. The same product may appear on several
// request lines; its total requested quantity is validated and decremented
// once, while the created order keeps one line item per request line.
func (s *Service) PlaceOrder(ctx context.Context, userID string, items []RequestedItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	totals := make(map[string]int, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if it.UnitPrice.IsNegative() {
			return nil, &InvalidUnitPriceError{ProductID: it.ProductID, UnitPrice: it.UnitPrice.String()}
		}
		if _, seen := totals[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		totals[it.ProductID] += it.Quantity
	}

	stock, err := s.store.StockByProductID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	var missing []string
	var shortages []StockShortage
	for _, id := range ids {
		available, ok := stock[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if available < totals[id] {
			shortages = append(shortages, StockShortage{
				ProductID: id, Requested: totals[id], Available: available,
			})
		}
	}
	if len(missing) > 0 {
		return nil, &ProductNotFoundError{ProductIDs: missing}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	o := &Order{UserID: userID, Items: make([]OrderItem, 0, len(items))}
	for _, it := range items {
		o.Items = append(o.Items, OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	// The store re-checks stock at write time; the pre-check above cannot see
	// concurrent placements.
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
