package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RepositoryPort abstracts shipment persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Shipment, error)
	UpdateStage(ctx context.Context, id int64, stage Stage, shippedDate *time.Time, updatedAt time.Time) error
	ByOrder(ctx context.Context, orderID int64) ([]Shipment, error)
	ShippedOn(ctx context.Context, day time.Time) ([]Shipment, error)
}

// TxRepository is the transactional view used while recording a box.
type TxRepository interface {
	// LockOrder returns the order status and holds the order row until commit.
	LockOrder(ctx context.Context, orderID int64) (orders.Status, error)
	Insert(ctx context.Context, s Shipment) (int64, error)
}

// MetricsRecorder counts recorded boxes.
type MetricsRecorder interface {
	ShipmentRecorded()
}

// Service tracks boxes dispatched for orders.
type Service struct {
	repo    RepositoryPort
	boxIDs  BoxIDGenerator
	metrics MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, boxIDs BoxIDGenerator, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, boxIDs: boxIDs, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// RecordShipment stores one box for an order in a shippable status.
func (s *Service) RecordShipment(ctx context.Context, principal shared.Principal, input RecordInput) (Shipment, error) {
	if err := input.Validate(); err != nil {
		return Shipment{}, err
	}
	now := s.now()
	shipment := Shipment{
		OrderID:        input.OrderID,
		BoxID:          input.BoxID,
		Weight:         input.Weight,
		Length:         input.Length,
		Breadth:        input.Breadth,
		Height:         input.Height,
		Carrier:        input.Carrier,
		TrackingID:     input.TrackingID,
		ShippingCharge: input.ShippingCharge,
		ActualWeight:   input.ActualWeight,
		ParcelAmount:   input.ParcelAmount,
		Stage:          input.Stage,
		PackedBy:       principal.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if shipment.Stage == "" {
		shipment.Stage = StagePacked
	}
	if shipment.BoxID == "" && s.boxIDs != nil {
		shipment.BoxID = s.boxIDs.NextBoxID()
	}
	if shipment.BoxID == "" {
		return Shipment{}, shared.NewValidationError("box_id", "is required")
	}
	if shipment.Stage == StageShipped {
		day := DateOnly(now)
		if input.ShippedDate != nil {
			day = DateOnly(*input.ShippedDate)
		}
		shipment.ShippedDate = &day
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		status, err := tx.LockOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !status.Shippable() {
			return fmt.Errorf("%w (order %d is %s)", ErrNotShippable, input.OrderID, status)
		}
		shipment.ID, err = tx.Insert(ctx, shipment)
		return err
	})
	if err != nil {
		return Shipment{}, err
	}
	if s.metrics != nil {
		s.metrics.ShipmentRecorded()
	}
	s.logger.Info("shipment recorded", slog.Int64("order_id", shipment.OrderID), slog.String("box_id", shipment.BoxID))
	return shipment, nil
}

// AdvanceStage moves a box forward; reaching shipped stamps the shipped date.
func (s *Service) AdvanceStage(ctx context.Context, id int64, stage Stage) (Shipment, error) {
	if !stage.IsValid() {
		return Shipment{}, shared.NewValidationError("stage", fmt.Sprintf("unknown stage %q", stage))
	}
	shipment, err := s.repo.Get(ctx, id)
	if err != nil {
		return Shipment{}, err
	}
	if shipment.Stage == stage {
		return shipment, nil
	}
	if !shipment.Stage.Before(stage) {
		return Shipment{}, ErrStageBackwards
	}
	now := s.now()
	shipped := shipment.ShippedDate
	if stage == StageShipped && shipped == nil {
		day := DateOnly(now)
		shipped = &day
	}
	if err := s.repo.UpdateStage(ctx, id, stage, shipped, now); err != nil {
		return Shipment{}, err
	}
	shipment.Stage, shipment.ShippedDate, shipment.UpdatedAt = stage, shipped, now
	return shipment, nil
}

// ByOrder lists every box of an order.
func (s *Service) ByOrder(ctx context.Context, orderID int64) ([]Shipment, error) {
	return s.repo.ByOrder(ctx, orderID)
}

// DailySummary totals shipments whose shipped date equals day.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (DailySummary, error) {
	day = DateOnly(day)
	shipments, err := s.repo.ShippedOn(ctx, day)
	if err != nil {
		return DailySummary{}, fmt.Errorf("warehouse: daily summary: %w", err)
	}
	return Summarize(day, shipments), nil
}
