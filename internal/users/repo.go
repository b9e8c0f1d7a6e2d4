package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storeapi/internal/catalog"
)

var ErrNotFound = errors.New("user not found")

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.address, u.created_at, u.updated_at, p.receive_email`

const userSelect = `
	SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN user_preferences p ON p.user_id = u.id`

// UserUpdate carries partial fields for PATCH; nil means unchanged.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Address   *string
}

func (r *Repo) List(ctx context.Context, offset, limit int, order string) ([]User, error) {
	dir := "DESC" // newest
	if order == "oldest" {
		dir = "ASC"
	}
	rows, err := r.DB.Query(ctx, userSelect+` ORDER BY u.created_at `+dir+` OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, userSelect+` WHERE u.id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user and its preference in one transaction.
func (r *Repo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO users(id, email, first_name, last_name, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Address)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}

	receiveEmail := false
	if u.Preference != nil {
		receiveEmail = u.Preference.ReceiveEmail
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_preferences(user_id, receive_email)
		VALUES ($1, $2)`, u.ID, receiveEmail); err != nil {
		return err
	}
	u.Preference = &Preference{ReceiveEmail: receiveEmail}
	return tx.Commit(ctx)
}

func (r *Repo) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users SET
			email      = COALESCE($2, email),
			first_name = COALESCE($3, first_name),
			last_name  = COALESCE($4, last_name),
			address    = COALESCE($5, address),
			updated_at = now()
		WHERE id::text = $1
		RETURNING id, email, first_name, last_name, address, created_at, updated_at`,
		id, upd.Email, upd.FirstName, upd.LastName, upd.Address)

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SavedProducts lists the user's wishlist.
func (r *Repo) SavedProducts(ctx context.Context, userID string) ([]catalog.Product, error) {
	if err := r.ensureUser(ctx, r.DB, userID); err != nil {
		return nil, err
	}
	return r.savedProducts(ctx, r.DB, userID)
}

// ToggleSaved saves the product if it is not on the user's wishlist, removes
// it if it is, and returns the resulting wishlist.
func (r *Repo) ToggleSaved(ctx context.Context, userID, productID string) ([]catalog.Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.ensureUser(ctx, tx, userID); err != nil {
		return nil, err
	}
	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id::text = $1)`, productID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, catalog.ErrNotFound
	}

	ct, err := tx.Exec(ctx, `DELETE FROM saved_products WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO saved_products(user_id, product_id) VALUES ($1, $2)`, userID, productID); err != nil {
			return nil, err
		}
	}

	list, err := r.savedProducts(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return list, tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) ensureUser(ctx context.Context, q querier, userID string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) savedProducts(ctx context.Context, q querier, userID string) ([]catalog.Product, error) {
	rows, err := q.Query(ctx, `
		SELECT pr.id, pr.name, pr.description, pr.price::text, pr.stock, pr.category, pr.created_at, pr.updated_at
		FROM saved_products sp
		JOIN products pr ON pr.id = sp.product_id
		WHERE sp.user_id = $1
		ORDER BY sp.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.Product, 0)
	for rows.Next() {
		var p catalog.Product
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var receiveEmail *bool
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Address, &u.CreatedAt, &u.UpdatedAt, &receiveEmail)
	if err != nil {
		return User{}, err
	}
	if receiveEmail != nil {
		u.Preference = &Preference{ReceiveEmail: *receiveEmail}
	}
	return u, nil
}
