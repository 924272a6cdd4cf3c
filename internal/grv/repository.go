package grv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists vouchers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, order_id, product_description, reason, price, quantity, remark, status, created_by, created_at, updated_at`

// OrderExists reports whether the order is present.
func (r *Repository) OrderExists(ctx context.Context, orderID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&ok)
	return ok, err
}

// Insert stores a voucher.
func (r *Repository) Insert(ctx context.Context, g Return) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO grv_returns (order_id, product_description, reason, price, quantity, remark, status,
created_by, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		g.OrderID, g.ProductDescription, g.Reason, g.Price, g.Quantity, string(g.Remark), string(g.Status),
		g.CreatedBy, g.CreatedAt, g.UpdatedAt).Scan(&id)
	return id, err
}

// Get loads a voucher.
func (r *Repository) Get(ctx context.Context, id int64) (Return, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM grv_returns WHERE id=$1`, id)
	if err != nil {
		return Return{}, err
	}
	g, err := pgx.CollectExactlyOneRow(rows, scanReturn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Return{}, ErrNotFound
		}
		return Return{}, err
	}
	return g, nil
}

// Decide moves a voucher out of status from. The status guard in the WHERE
// clause makes concurrent decisions race on the row, and the loser sees
// ErrAlreadyDecided.
func (r *Repository) Decide(ctx context.Context, g Return, from Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE grv_returns SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4`,
		g.ID, string(g.Status), g.UpdatedAt, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := r.pool.QueryRow(ctx, `SELECT status FROM grv_returns WHERE id=$1`, g.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w (%s to %s)", ErrAlreadyDecided, current, g.Status)
	}
	return nil
}

// ByOrder lists vouchers of an order.
func (r *Repository) ByOrder(ctx context.Context, orderID int64) ([]Return, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM grv_returns WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanReturn)
}

func scanReturn(row pgx.CollectableRow) (Return, error) {
	var g Return
	var remark, status string
	err := row.Scan(&g.ID, &g.OrderID, &g.ProductDescription, &g.Reason, &g.Price, &g.Quantity, &remark, &status,
		&g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	g.Remark, g.Status = Remark(remark), Status(status)
	return g, err
}
