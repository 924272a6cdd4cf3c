package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/platform/db"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Repository persists shipments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const shipmentColumns = `id, order_id, box_id, weight, length, breadth, height, carrier, tracking_id, shipping_charge,
actual_weight, parcel_amount, stage, shipped_date, packed_by, created_at, updated_at`

type txRepository struct {
	q db.Querier
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

// LockOrder returns the status of an order and locks its row for the
// remainder of the transaction.
func (r *txRepository) LockOrder(ctx context.Context, orderID int64) (orders.Status, error) {
	var status string
	if err := r.q.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", orders.ErrOrderNotFound
		}
		return "", err
	}
	return orders.Status(status), nil
}

// Insert stores a shipment.
func (r *txRepository) Insert(ctx context.Context, s Shipment) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO shipments (order_id, box_id, weight, length, breadth, height, carrier, tracking_id,
shipping_charge, actual_weight, parcel_amount, stage, shipped_date, packed_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16) RETURNING id`,
		s.OrderID, s.BoxID, s.Weight, s.Length, s.Breadth, s.Height, s.Carrier, s.TrackingID, s.ShippingCharge,
		s.ActualWeight, s.ParcelAmount, string(s.Stage), s.ShippedDate, s.PackedBy, s.CreatedAt, s.UpdatedAt).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, ErrDuplicateBox
		}
		return 0, err
	}
	return id, nil
}

// Get loads a shipment.
func (r *Repository) Get(ctx context.Context, id int64) (Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id=$1`, id)
	if err != nil {
		return Shipment{}, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanShipment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrShipmentNotFound
		}
		return Shipment{}, err
	}
	return s, nil
}

// UpdateStage stores a new stage and shipped date.
func (r *Repository) UpdateStage(ctx context.Context, id int64, stage Stage, shippedDate *time.Time, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE shipments SET stage=$2, shipped_date=$3, updated_at=$4 WHERE id=$1`, id, string(stage), shippedDate, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

// ByOrder lists shipments of an order.
func (r *Repository) ByOrder(ctx context.Context, orderID int64) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanShipment)
}

// ShippedOn lists shipments with the given shipped date.
func (r *Repository) ShippedOn(ctx context.Context, day time.Time) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE shipped_date=$1::date ORDER BY id`, day)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanShipment)
}

func scanShipment(row pgx.CollectableRow) (Shipment, error) {
	var s Shipment
	var stage string
	err := row.Scan(&s.ID, &s.OrderID, &s.BoxID, &s.Weight, &s.Length, &s.Breadth, &s.Height, &s.Carrier, &s.TrackingID,
		&s.ShippingCharge, &s.ActualWeight, &s.ParcelAmount, &stage, &s.ShippedDate, &s.PackedBy, &s.CreatedAt, &s.UpdatedAt)
	s.Stage = Stage(stage)
	return s, err
}
