package orders

import "context"

// Store is the persistence collaborator of the placement service.
type Store interface {
	// StockByProductID returns the current stock for every id in ids that
	// exists, in a single read. Ids that do not exist are absent from the map.
	StockByProductID(ctx context.Context, ids []string) (map[string]int, error)

	// CreateOrder atomically decrements stock for every referenced product
	// and inserts the order with its items, filling in ID, CreatedAt and the
	// items' OrderID. The decrement is conditional on sufficient stock at
	// write time; a concurrent competitor winning the race surfaces as
	// *InsufficientStockError, a missing user as *UserNotFoundError. On any
	// error nothing is persisted.
	CreateOrder(ctx context.Context, o *Order) error
}
