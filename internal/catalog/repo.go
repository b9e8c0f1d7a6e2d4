package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

const productColumns = `id, name, description, price::text, stock, category, created_at, updated_at`

type Repo struct{ DB *pgxpool.Pool }

type ListParams struct {
	Offset   int
	Limit    int
	Order    string // newest | oldest | priceLowest | priceHighest
	Category Category
}

// ProductUpdate carries partial fields for PATCH; nil means unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *Category
}

func (r *Repo) List(ctx context.Context, p ListParams) ([]Product, error) {
	var orderBy string
	switch p.Order {
	case "oldest":
		orderBy = "created_at ASC"
	case "priceLowest":
		orderBy = "price ASC"
	case "priceHighest":
		orderBy = "price DESC"
	default: // newest
		orderBy = "created_at DESC"
	}

	q := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if p.Category != "" {
		q += ` WHERE category = $1`
		args = append(args, string(p.Category))
	}
	q += ` ORDER BY ` + orderBy
	q += fmt.Sprintf(` OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, p.Offset, p.Limit)

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, prod)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id::text = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, stock, category)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Stock, string(p.Category))
	return row.Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) Update(ctx context.Context, id string, upd ProductUpdate) (*Product, error) {
	var price any
	if upd.Price != nil {
		price = upd.Price.String()
	}
	var category any
	if upd.Category != nil {
		category = string(*upd.Category)
	}
	row := r.DB.QueryRow(ctx, `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4::numeric, price),
			stock       = COALESCE($5, stock),
			category    = COALESCE($6, category),
			updated_at  = now()
		WHERE id::text = $1
		RETURNING `+productColumns,
		id, upd.Name, upd.Description, price, upd.Stock, category)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Price, err = decimal.NewFromString(price)
	return p, err
}
