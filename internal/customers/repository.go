package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, email, phone, COALESCE(gst_number, ''), billing_address, state, created_by, created_at`

// Insert stores a customer, mapping unique violations to the colliding field.
func (r *Repository) Insert(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone, gst_number, billing_address, state, created_by, created_at)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8) RETURNING id`,
		c.Name, c.Email, c.Phone, c.GSTNumber, c.BillingAddress, c.State, c.CreatedBy, c.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, &DuplicateError{Field: fieldForConstraint(pgErr.ConstraintName)}
		}
		return 0, err
	}
	return id, nil
}

func fieldForConstraint(name string) string {
	switch {
	case strings.Contains(name, "email"):
		return "email"
	case strings.Contains(name, "phone"):
		return "phone"
	case strings.Contains(name, "gst"):
		return "gst_number"
	}
	return "customer"
}

// Get loads a customer.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM customers WHERE id=$1`, id)
	if err != nil {
		return Customer{}, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// List returns customers by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM customers
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY name, id LIMIT $2 OFFSET $3`, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func scanCustomer(row pgx.CollectableRow) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.GSTNumber, &c.BillingAddress, &c.State, &c.CreatedBy, &c.CreatedAt)
	return c, err
}
