package cart

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/orderflow/internal/platform/db"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Repository persists cart lines in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert adds a line; the (user_id, product_id) unique index rejects duplicates.
func (r *Repository) Insert(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO cart_lines (user_id, product_id, quantity, discount, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, line.UserID, line.ProductID, line.Quantity, line.Discount, line.Note, line.CreatedAt).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, ErrDuplicateLine
		}
		return 0, err
	}
	return id, nil
}

// List returns the user's lines oldest first.
func (r *Repository) List(ctx context.Context, userID int64) ([]Line, error) {
	return listLines(ctx, r.pool, userID, false)
}

// Delete removes one line owned by userID.
func (r *Repository) Delete(ctx context.Context, userID, lineID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1 AND user_id=$2`, lineID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

// NewTxStore binds checkout reads and deletes to an open transaction.
func NewTxStore(q db.Querier) TxStore {
	return &txStore{q: q}
}

type txStore struct {
	q db.Querier
}

// Snapshot locks the user's lines so a concurrent checkout of the same cart waits.
func (s *txStore) Snapshot(ctx context.Context, userID int64) ([]Line, error) {
	return listLines(ctx, s.q, userID, true)
}

func (s *txStore) DeleteLines(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1 AND id = ANY($2)`, userID, ids)
	return err
}

func listLines(ctx context.Context, q db.Querier, userID int64, lock bool) ([]Line, error) {
	sql := `SELECT c.id, c.user_id, c.product_id, p.name, c.quantity, c.discount, c.note, c.created_at
FROM cart_lines c JOIN products p ON p.id = c.product_id
WHERE c.user_id = $1 ORDER BY c.id`
	if lock {
		sql += ` FOR UPDATE OF c`
	}
	rows, err := q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Discount, &l.Note, &l.CreatedAt)
		return l, err
	})
}
