package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository runs report aggregates on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// SalesByStatus groups orders created in [from, to).
func (r *PGRepository) SalesByStatus(ctx context.Context, from, to time.Time) ([]StatusTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(total), 0)
FROM orders WHERE created_at >= $1 AND created_at < $2
GROUP BY status ORDER BY status`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusTotal, error) {
		var t StatusTotal
		err := row.Scan(&t.Status, &t.Count, &t.Amount)
		return t, err
	})
}

// CollectionsByPurpose groups receipts received in [from, to).
func (r *PGRepository) CollectionsByPurpose(ctx context.Context, from, to time.Time) ([]PurposeTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT purpose, COUNT(*), COALESCE(SUM(amount), 0)
FROM payment_receipts WHERE received_at >= $1 AND received_at < $2
GROUP BY purpose ORDER BY purpose`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PurposeTotal, error) {
		var t PurposeTotal
		err := row.Scan(&t.Purpose, &t.Count, &t.Amount)
		return t, err
	})
}

// StockByGroup sums stock per variant group; ungrouped products report under their own id.
func (r *PGRepository) StockByGroup(ctx context.Context) ([]GroupStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(NULLIF(group_id, ''), 'product-' || id::text) AS grp, COUNT(*), COALESCE(SUM(stock), 0)
FROM products GROUP BY grp ORDER BY grp`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (GroupStock, error) {
		var g GroupStock
		err := row.Scan(&g.GroupID, &g.Products, &g.Stock)
		return g, err
	})
}

var _ Repository = (*PGRepository)(nil)
