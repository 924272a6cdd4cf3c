package grv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RepositoryPort abstracts voucher persistence.
type RepositoryPort interface {
	OrderExists(ctx context.Context, orderID int64) (bool, error)
	Insert(ctx context.Context, r Return) (int64, error)
	Get(ctx context.Context, id int64) (Return, error)
	Decide(ctx context.Context, r Return, from Status) error
	ByOrder(ctx context.Context, orderID int64) ([]Return, error)
}

// ApprovalPort keeps the decision history of vouchers.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service manages return vouchers.
type Service struct {
	repo      RepositoryPort
	approvals ApprovalPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, approvals ApprovalPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, approvals: approvals, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create raises a pending voucher against an existing order.
func (s *Service) Create(ctx context.Context, principal shared.Principal, input CreateInput) (Return, error) {
	if err := input.Validate(); err != nil {
		return Return{}, err
	}
	ok, err := s.repo.OrderExists(ctx, input.OrderID)
	if err != nil {
		return Return{}, fmt.Errorf("grv: check order: %w", err)
	}
	if !ok {
		return Return{}, ErrOrderNotFound
	}
	now := s.now()
	r := Return{
		OrderID:            input.OrderID,
		ProductDescription: input.ProductDescription,
		Reason:             input.Reason,
		Price:              input.Price,
		Quantity:           input.Quantity,
		Remark:             input.Remark,
		Status:             StatusPending,
		CreatedBy:          principal.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if r.ID, err = s.repo.Insert(ctx, r); err != nil {
		return Return{}, err
	}
	return r, nil
}

// UpdateStatus decides a pending voucher. Repeating the current status neither
// saves nor touches updated_at.
func (s *Service) UpdateStatus(ctx context.Context, principal shared.Principal, id int64, next Status, note string) (Return, error) {
	if !next.IsValid() {
		return Return{}, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", next))
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Return{}, err
	}
	if r.Status == next {
		return r, nil
	}
	if r.Status != StatusPending || next == StatusPending {
		return Return{}, fmt.Errorf("%w (%s to %s)", ErrAlreadyDecided, r.Status, next)
	}
	from := r.Status
	r.Status = next
	r.UpdatedAt = s.now()
	if err := s.repo.Decide(ctx, r, from); err != nil {
		if errors.Is(err, ErrAlreadyDecided) {
			return Return{}, err
		}
		return Return{}, fmt.Errorf("grv: decide: %w", err)
	}
	if s.approvals != nil {
		err := s.approvals.Record(ctx, shared.NewDecision(shared.ApprovalModuleGRV, r.ID, principal, next == StatusApproved, note, r.UpdatedAt))
		if err != nil {
			s.logger.Warn("grv approval history", slog.Int64("grv_id", r.ID), slog.Any("error", err))
		}
	}
	return r, nil
}

// Get returns one voucher.
func (s *Service) Get(ctx context.Context, id int64) (Return, error) {
	return s.repo.Get(ctx, id)
}

// ByOrder lists vouchers raised against an order.
func (s *Service) ByOrder(ctx context.Context, orderID int64) ([]Return, error) {
	return s.repo.ByOrder(ctx, orderID)
}
