package proforma

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/cart"
	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/numbering"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RepositoryPort abstracts quotation persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
}

// TxRepository exposes the stores touched by a quotation in one transaction.
type TxRepository interface {
	catalog.StockTx
	cart.TxStore
	numbering.CounterStore
	Insert(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	SetTotal(ctx context.Context, id int64, total decimal.Decimal) error
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status, updatedAt time.Time) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort keeps the decision history of quotations.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// MetricsRecorder counts checkout outcomes.
type MetricsRecorder interface {
	OrderCreated(kind string)
	StockRejected(kind string)
}

const lockKind = "proforma"

// Service coordinates quotation operations.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	approvals ApprovalPort
	locker    shared.Locker
	metrics   MetricsRecorder
	lockTTL   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. audit, approvals, locker and metrics may be nil.
func NewService(repo RepositoryPort, audit AuditPort, approvals ApprovalPort, locker shared.Locker, metrics MetricsRecorder, lockTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Service{
		repo:      repo,
		audit:     audit,
		approvals: approvals,
		locker:    locker,
		metrics:   metrics,
		lockTTL:   lockTTL,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create converts the principal's cart into a quotation in one transaction.
func (s *Service) Create(ctx context.Context, principal shared.Principal, input CreateInput) (Order, error) {
	if err := input.Validate(); err != nil {
		return Order{}, err
	}
	prefix, err := numbering.ProformaPrefix(input.CompanyName)
	if err != nil {
		return Order{}, err
	}
	if s.locker != nil {
		unlock, err := s.locker.Obtain(ctx, shared.CheckoutLockKey(lockKind, principal.ID), s.lockTTL)
		if err != nil {
			if errors.Is(err, shared.ErrLockHeld) {
				return Order{}, ErrCheckoutInProgress
			}
			return Order{}, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("proforma release checkout lock", slog.Int64("user_id", principal.ID), slog.Any("error", err))
			}
		}()
	}

	now := s.now()
	order := Order{
		StaffID:        principal.ID,
		CustomerID:     input.CustomerID,
		BillingAddress: input.BillingAddress,
		CompanyName:    input.CompanyName,
		State:          input.State,
		Status:         StatusPending,
		Bank:           input.Bank,
		PaymentMethod:  input.PaymentMethod,
		ShippingMode:   input.ShippingMode,
		CODAmount:      input.CODAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := tx.Snapshot(ctx, principal.ID)
		if err != nil {
			return fmt.Errorf("proforma: read cart: %w", err)
		}
		if len(lines) == 0 {
			return shared.NewValidationError("cart", "cart is empty")
		}
		if order.Invoice, err = numbering.Next(ctx, tx, prefix); err != nil {
			return err
		}
		if order.ID, err = tx.Insert(ctx, order); err != nil {
			return err
		}
		order.Items = make([]Item, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			product, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product.SellingPrice == nil {
				return shared.NewValidationError("cart", fmt.Sprintf("product %q has no selling price", product.Name))
			}
			if err := catalog.DecrementStock(ctx, tx, product.ID, line.Quantity); err != nil {
				return err
			}
			item := Item{
				ProformaID:   order.ID,
				ProductID:    product.ID,
				Description:  product.Name,
				SellingPrice: *product.SellingPrice,
				Rate:         product.ExcludePrice,
				Tax:          product.Tax,
				Discount:     line.Discount,
				Quantity:     line.Quantity,
			}
			if item.ID, err = tx.InsertItem(ctx, item); err != nil {
				return err
			}
			total = total.Add(item.LineTotal())
			order.Items = append(order.Items, item)
		}
		order.TotalAmount = total
		if err := tx.SetTotal(ctx, order.ID, total); err != nil {
			return fmt.Errorf("proforma: set total: %w", err)
		}
		return tx.DeleteLines(ctx, principal.ID, cart.LineIDs(lines))
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) && s.metrics != nil {
			s.metrics.StockRejected(lockKind)
		}
		return Order{}, err
	}
	if s.metrics != nil {
		s.metrics.OrderCreated(lockKind)
	}
	s.record(ctx, shared.NewAuditLog(principal.ID, "proforma.create", "proforma", order.ID, map[string]any{"invoice": order.Invoice}))
	return order, nil
}

// UpdateStatus decides a pending quotation. Repeating the current status is a no-op;
// cancelling or rejecting returns the quoted quantities to stock.
func (s *Service) UpdateStatus(ctx context.Context, principal shared.Principal, id int64, next Status, note string) (Order, error) {
	if !next.IsValid() {
		return Order{}, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", next))
	}
	var (
		order   Order
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if order, err = tx.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransition(next) {
			return &TransitionError{From: order.Status, To: next}
		}
		if next == StatusCancelled || next == StatusRejected {
			quantities := make(map[int64]int, len(order.Items))
			for _, it := range order.Items {
				quantities[it.ProductID] += it.Quantity
			}
			if err := catalog.RestockItems(ctx, tx, quantities); err != nil {
				return err
			}
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, id, next, now); err != nil {
			return fmt.Errorf("proforma: update status: %w", err)
		}
		order.Status, order.UpdatedAt, changed = next, now, true
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	if changed {
		s.recordDecision(ctx, principal, order, note)
		s.record(ctx, shared.NewAuditLog(principal.ID, "proforma.status", "proforma", id, map[string]any{"status": string(next)}))
	}
	return order, nil
}

func (s *Service) recordDecision(ctx context.Context, principal shared.Principal, order Order, note string) {
	if s.approvals == nil {
		return
	}
	rec := shared.NewDecision(shared.ApprovalModuleProforma, order.ID, principal, order.Status == StatusApproved, note, order.UpdatedAt)
	if err := s.approvals.Record(ctx, rec); err != nil {
		s.logger.Warn("proforma approval history", slog.Int64("proforma_id", order.ID), slog.Any("error", err))
	}
}

// Get returns a quotation with items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns quotations newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("proforma audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}
