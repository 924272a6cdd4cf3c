package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/numbering"
	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/platform/db"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// ErrDuplicateReceipt indicates a receipt code collision.
var ErrDuplicateReceipt = fmt.Errorf("payments: receipt code %w", shared.ErrDuplicate)

// Repository persists receipts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	*numbering.PGStore
	q db.Querier
}

const receiptColumns = `id, order_id, customer_id, code, sequence, amount, bank, transaction_id, received_at,
created_by, remark, purpose, created_at`

const orderSummaryColumns = `id, customer_id, invoice, status, payment_status, total_amount, created_at, updated_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{PGStore: numbering.NewPGStore(tx, numbering.OrdersTable), q: tx})
	})
}

// GetOrder loads the order header needed for balances.
func (r *Repository) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

// ReceiptsByOrder lists receipts of an order in issue order.
func (r *Repository) ReceiptsByOrder(ctx context.Context, orderID int64) ([]Receipt, error) {
	return queryReceipts(ctx, r.pool, `WHERE order_id=$1`, orderID)
}

// OrdersByCustomer lists order headers of a customer oldest first.
func (r *Repository) OrdersByCustomer(ctx context.Context, customerID int64) ([]orders.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderSummaryColumns+` FROM orders WHERE customer_id=$1 ORDER BY created_at, id`, customerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.Order, error) {
		return scanOrderSummary(row)
	})
}

// ReceiptsByCustomer lists every receipt of a customer.
func (r *Repository) ReceiptsByCustomer(ctx context.Context, customerID int64) ([]Receipt, error) {
	return queryReceipts(ctx, r.pool, `WHERE customer_id=$1`, customerID)
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (orders.Order, error) {
	return getOrder(ctx, r.q, id, true)
}

func (r *txRepository) ReceiptsByOrder(ctx context.Context, orderID int64) ([]Receipt, error) {
	return queryReceipts(ctx, r.q, `WHERE order_id=$1`, orderID)
}

func (r *txRepository) InsertReceipt(ctx context.Context, rc Receipt) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO payment_receipts (order_id, customer_id, code, sequence, amount, bank, transaction_id,
received_at, created_by, remark, purpose, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		rc.OrderID, rc.CustomerID, rc.Code, rc.Sequence, rc.Amount, rc.Bank, rc.TransactionID, rc.ReceivedAt,
		rc.CreatedBy, rc.Remark, string(rc.Purpose), rc.CreatedAt).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, ErrDuplicateReceipt
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) SetPaymentStatus(ctx context.Context, orderID int64, status orders.PaymentStatus) error {
	_, err := r.q.Exec(ctx, `UPDATE orders SET payment_status=$2 WHERE id=$1`, orderID, string(status))
	return err
}

func getOrder(ctx context.Context, q db.Querier, id int64, lock bool) (orders.Order, error) {
	sql := `SELECT ` + orderSummaryColumns + ` FROM orders WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrderSummary(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orders.Order{}, orders.ErrOrderNotFound
		}
		return orders.Order{}, err
	}
	return o, nil
}

func scanOrderSummary(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var status, payment string
	var total decimal.Decimal
	if err := row.Scan(&o.ID, &o.CustomerID, &o.Invoice, &status, &payment, &total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.Order{}, err
	}
	o.Status = orders.Status(status)
	o.PaymentStatus = orders.PaymentStatus(payment)
	o.TotalAmount = total
	return o, nil
}

func queryReceipts(ctx context.Context, q db.Querier, where string, arg any) ([]Receipt, error) {
	rows, err := q.Query(ctx, `SELECT `+receiptColumns+` FROM payment_receipts `+where+` ORDER BY sequence`, arg)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Receipt, error) {
		var rc Receipt
		var purpose string
		err := row.Scan(&rc.ID, &rc.OrderID, &rc.CustomerID, &rc.Code, &rc.Sequence, &rc.Amount, &rc.Bank, &rc.TransactionID,
			&rc.ReceivedAt, &rc.CreatedBy, &rc.Remark, &purpose, &rc.CreatedAt)
		rc.Purpose = Purpose(purpose)
		return rc, err
	})
}
