package proforma

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/cart"
	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/numbering"
	"github.com/odyssey-erp/orderflow/internal/platform/db"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Repository persists quotations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	catalog.StockTx
	cart.TxStore
	*numbering.PGStore
	q db.Querier
}

const columns = `id, staff_id, customer_id, billing_address, company_name, state, invoice, status, total_amount,
bank, payment_method, shipping_mode, cod_amount, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			StockTx: catalog.NewStockTx(tx),
			TxStore: cart.NewTxStore(tx),
			PGStore: numbering.NewPGStore(tx, numbering.ProformaTable),
			q:       tx,
		})
	})
}

// Get loads a quotation with items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	return load(ctx, r.pool, id, false)
}

// List returns quotations newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM proforma_orders
WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		return scan(row)
	})
}

func (r *txRepository) Insert(ctx context.Context, o Order) (int64, error) {
	var id int64
	var cod decimal.NullDecimal
	if o.CODAmount != nil {
		cod = decimal.NullDecimal{Decimal: *o.CODAmount, Valid: true}
	}
	err := r.q.QueryRow(ctx, `INSERT INTO proforma_orders (staff_id, customer_id, billing_address, company_name, state, invoice,
status, total_amount, bank, payment_method, shipping_mode, cod_amount, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id`,
		o.StaffID, o.CustomerID, o.BillingAddress, o.CompanyName, o.State, o.Invoice, string(o.Status), o.TotalAmount,
		o.Bank, o.PaymentMethod, o.ShippingMode, cod, o.CreatedAt, o.UpdatedAt).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, ErrDuplicateInvoice
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertItem(ctx context.Context, it Item) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO proforma_items (proforma_id, product_id, description, selling_price, rate, tax, discount, quantity)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		it.ProformaID, it.ProductID, it.Description, it.SellingPrice, it.Rate, it.Tax, it.Discount, it.Quantity).Scan(&id)
	return id, err
}

func (r *txRepository) SetTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `UPDATE proforma_orders SET total_amount=$2 WHERE id=$1`, id, total)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return load(ctx, r.q, id, true)
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE proforma_orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func load(ctx context.Context, q db.Querier, id int64, lock bool) (Order, error) {
	sql := `SELECT ` + columns + ` FROM proforma_orders WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scan(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, proforma_id, product_id, description, selling_price, rate, tax, discount, quantity
FROM proforma_items WHERE proforma_id=$1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.ProformaID, &it.ProductID, &it.Description, &it.SellingPrice, &it.Rate, &it.Tax, &it.Discount, &it.Quantity)
		return it, err
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func scan(row pgx.Row) (Order, error) {
	var o Order
	var status string
	var cod decimal.NullDecimal
	err := row.Scan(&o.ID, &o.StaffID, &o.CustomerID, &o.BillingAddress, &o.CompanyName, &o.State, &o.Invoice, &status,
		&o.TotalAmount, &o.Bank, &o.PaymentMethod, &o.ShippingMode, &cod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if cod.Valid {
		v := cod.Decimal
		o.CODAmount = &v
	}
	return o, nil
}
