package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/platform/db"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// ErrDuplicateProduct indicates the product name is already taken.
var ErrDuplicateProduct = fmt.Errorf("catalog: product name %w", shared.ErrDuplicate)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	q db.Querier
}

const productColumns = `id, name, hsn_code, group_id, type, family, unit, color, size, stock,
purchase_rate, selling_price, tax, exclude_price, approval_status, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

// Get loads a product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, r.pool, id)
}

// List returns products ordered so that variants of a group are adjacent.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND ($2 = '' OR family = $2)
ORDER BY COALESCE(NULLIF(group_id, ''), 'product:' || id::text), id
LIMIT $3 OFFSET $4`, filter.Search, filter.Family, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update replaces editable product fields. Stock is left to the order flow.
func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name=$2, hsn_code=$3, group_id=$4, type=$5, family=$6, unit=$7,
color=$8, size=$9, purchase_rate=$10, selling_price=$11, tax=$12, exclude_price=$13, updated_at=$14
WHERE id=$1`, p.ID, p.Name, p.HSNCode, p.GroupID, string(p.Type), p.Family, p.Unit, p.Color, p.Size,
		p.PurchaseRate, nullDecimal(p.SellingPrice), p.Tax, p.ExcludePrice, p.UpdatedAt)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// UpdatePrice stores a new selling price with its derived exclusive price.
func (r *Repository) UpdatePrice(ctx context.Context, id int64, sellingPrice, excludePrice decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET selling_price=$2, exclude_price=$3, updated_at=NOW() WHERE id=$1`, id, sellingPrice, excludePrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) Insert(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO products (name, hsn_code, group_id, type, family, unit, color, size, stock,
purchase_rate, selling_price, tax, exclude_price, approval_status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16) RETURNING id`,
		p.Name, p.HSNCode, p.GroupID, string(p.Type), p.Family, p.Unit, p.Color, p.Size, p.Stock,
		p.PurchaseRate, nullDecimal(p.SellingPrice), p.Tax, p.ExcludePrice, string(p.ApprovalStatus), p.CreatedAt, p.UpdatedAt).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, ErrDuplicateProduct
		}
		return 0, err
	}
	return id, nil
}

// NewStockTx binds stock movements to an open transaction.
func NewStockTx(q db.Querier) StockTx {
	return &stockTx{q: q}
}

type stockTx struct {
	q db.Querier
}

func (s *stockTx) GetProduct(ctx context.Context, id int64) (Product, error) {
	return getProduct(ctx, s.q, id)
}

func (s *stockTx) TryDecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := s.q.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *stockTx) IncrementStock(ctx context.Context, id int64, qty int) error {
	tag, err := s.q.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func getProduct(ctx context.Context, q db.Querier, id int64) (Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var typ, approval string
	var selling decimal.NullDecimal
	err := row.Scan(&p.ID, &p.Name, &p.HSNCode, &p.GroupID, &typ, &p.Family, &p.Unit, &p.Color, &p.Size, &p.Stock,
		&p.PurchaseRate, &selling, &p.Tax, &p.ExcludePrice, &approval, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Type = ProductType(typ)
	p.ApprovalStatus = ApprovalStatus(approval)
	if selling.Valid {
		v := selling.Decimal
		p.SellingPrice = &v
	}
	return p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
