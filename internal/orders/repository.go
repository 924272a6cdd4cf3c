package orders

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

// Repository persists orders in PostgreSQL.
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

const orderColumns = `id, staff_id, customer_id, billing_address, company_id, state, invoice, status, payment_status,
total_amount, bank, payment_method, shipping_mode, cod_amount, remark, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			StockTx: catalog.NewStockTx(tx),
			TxStore: cart.NewTxStore(tx),
			PGStore: numbering.NewPGStore(tx, numbering.OrdersTable),
			q:       tx,
		})
	})
}

// Get loads an order and its items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	return loadOrder(ctx, r.pool, id, false)
}

// List returns orders newest first without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
WHERE ($1 = '' OR status = $1)
  AND ($2 = 0 OR customer_id = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6`, string(filter.Status), filter.CustomerID, filter.From, filter.To, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		return scanOrder(row)
	})
}

func (r *txRepository) GetCompany(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.q.QueryRow(ctx, `SELECT id, name, invoice_prefix FROM companies WHERE id=$1`, id).Scan(&c.ID, &c.Name, &c.InvoicePrefix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}
	return c, nil
}

func (r *txRepository) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO orders (staff_id, customer_id, billing_address, company_id, state, invoice, status,
payment_status, total_amount, bank, payment_method, shipping_mode, cod_amount, remark, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16) RETURNING id`,
		o.StaffID, o.CustomerID, o.BillingAddress, o.CompanyID, o.State, o.Invoice, string(o.Status),
		string(o.PaymentStatus), o.TotalAmount, o.Bank, o.PaymentMethod, o.ShippingMode, nullDecimal(o.CODAmount),
		o.Remark, o.CreatedAt, o.UpdatedAt).Scan(&id)
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
	err := r.q.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, variant_id, description, selling_price, rate, tax, discount, quantity)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		it.OrderID, it.ProductID, it.VariantID, it.Description, it.SellingPrice, it.Rate, it.Tax, it.Discount, it.Quantity).Scan(&id)
	return id, err
}

func (r *txRepository) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := r.q.Exec(ctx, `UPDATE orders SET total_amount=$2 WHERE id=$1`, orderID, total)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return loadOrder(ctx, r.q, id, true)
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func loadOrder(ctx context.Context, q db.Querier, id int64, lock bool) (Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, variant_id, description, selling_price, rate, tax, discount, quantity
FROM order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Description, &it.SellingPrice,
			&it.Rate, &it.Tax, &it.Discount, &it.Quantity)
		return it, err
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status, payment string
	var cod decimal.NullDecimal
	err := row.Scan(&o.ID, &o.StaffID, &o.CustomerID, &o.BillingAddress, &o.CompanyID, &o.State, &o.Invoice, &status,
		&payment, &o.TotalAmount, &o.Bank, &o.PaymentMethod, &o.ShippingMode, &cod, &o.Remark, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.PaymentStatus = PaymentStatus(payment)
	if cod.Valid {
		v := cod.Decimal
		o.CODAmount = &v
	}
	return o, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
