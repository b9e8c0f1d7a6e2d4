package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres-backed Store, plus the read side used by handlers.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) StockByProductID(ctx context.Context, ids []string) (map[string]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, stock FROM products WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int, len(ids))
	for rows.Next() {
		var id string
		var stock int
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, err
		}
		out[id] = stock
	}
	return out, rows.Err()
}

// CreateOrder runs the placement transaction: lock each referenced product,
// decrement its stock conditionally on the floor constraint, then insert the
// order and its items. Any shortfall rolls the whole transaction back.
func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	// total quantity per distinct product; the decrement happens once per
	// product even when it appears on several lines
	totals := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		totals[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	// stable lock order so two competing placements cannot deadlock
	sort.Strings(ids)

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// the user must exist before any stock mutation can commit
	var userExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, o.UserID).Scan(&userExists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !userExists {
		return &UserNotFoundError{UserID: o.UserID}
	}

	var shortages []StockShortage
	for _, id := range ids {
		qty := totals[id]

		var available int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id::text = $1 FOR UPDATE`, id).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return &ProductNotFoundError{ProductIDs: []string{id}}
		}
		if err != nil {
			return fmt.Errorf("lock product %s: %w", id, err)
		}
		if available < qty {
			shortages = append(shortages, StockShortage{ProductID: id, Requested: qty, Available: available})
			continue
		}

		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id::text = $1 AND stock >= $2`, id, qty)
		if err != nil {
			return fmt.Errorf("decrement product %s: %w", id, err)
		}
		if ct.RowsAffected() != 1 {
			shortages = append(shortages, StockShortage{ProductID: id, Requested: qty, Available: available})
		}
	}
	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages} // rollback via defer
	}

	o.ID = uuid.NewString()
	row := tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id) VALUES ($1, $2)
		RETURNING created_at`, o.ID, o.UserID)
	if err := row.Scan(&o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		it := o.Items[i]
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4::numeric)`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice.String()); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Repo) OrderByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, created_at FROM orders WHERE id::text = $1`, id).
		Scan(&o.ID, &o.UserID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price::text
		FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		var price string
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// ListByUser returns the user's orders, newest first, without items.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, created_at FROM orders
		WHERE user_id::text = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
