package orders

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

// RepositoryPort abstracts order persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
}

// TxRepository exposes the stores touched by checkout and status changes in one transaction.
type TxRepository interface {
	catalog.StockTx
	cart.TxStore
	numbering.CounterStore
	GetCompany(ctx context.Context, id int64) (Company, error)
	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status, updatedAt time.Time) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Notifier schedules out-of-band work for a new order.
type Notifier interface {
	EnqueueOrderCreated(ctx context.Context, orderID int64) error
}

// CacheInvalidator drops cached report results after writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// MetricsRecorder counts checkout outcomes.
type MetricsRecorder interface {
	OrderCreated(kind string)
	StockRejected(kind string)
}

// Dependencies groups the optional collaborators of Service.
type Dependencies struct {
	Audit    AuditPort
	Locker   shared.Locker
	Notifier Notifier
	Cache    CacheInvalidator
	Metrics  MetricsRecorder
	Logger   *slog.Logger
}

// ServiceConfig tunes checkout behaviour.
type ServiceConfig struct {
	CheckoutLockTTL time.Duration
}

const metricsKind = "order"

// Service coordinates the order lifecycle.
type Service struct {
	repo    RepositoryPort
	deps    Dependencies
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps Dependencies, cfg ServiceConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.CheckoutLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{repo: repo, deps: deps, lockTTL: ttl, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateOrder converts the principal's cart into an order in one transaction.
func (s *Service) CreateOrder(ctx context.Context, principal shared.Principal, input CreateInput) (Order, error) {
	if err := input.Validate(); err != nil {
		return Order{}, err
	}
	release, err := s.obtainCheckoutLock(ctx, principal.ID)
	if err != nil {
		return Order{}, err
	}
	defer release()

	now := s.now()
	order := Order{
		StaffID:        principal.ID,
		CustomerID:     input.CustomerID,
		BillingAddress: input.BillingAddress,
		CompanyID:      input.CompanyID,
		State:          input.State,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		Bank:           input.Bank,
		PaymentMethod:  input.PaymentMethod,
		ShippingMode:   input.ShippingMode,
		CODAmount:      input.CODAmount,
		Remark:         input.Remark,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		company, err := tx.GetCompany(ctx, input.CompanyID)
		if err != nil {
			return err
		}
		lines, err := tx.Snapshot(ctx, principal.ID)
		if err != nil {
			return fmt.Errorf("orders: read cart: %w", err)
		}
		if len(lines) == 0 {
			return shared.NewValidationError("cart", "cart is empty")
		}
		invoice, err := numbering.Next(ctx, tx, company.InvoicePrefix)
		if err != nil {
			return err
		}
		order.Invoice = invoice
		order.Items = make([]Item, 0, len(lines))
		order.ID, err = tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		for _, line := range lines {
			item, err := s.checkoutLine(ctx, tx, order.ID, line)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}
		order.TotalAmount = TotalOf(order.Items)
		if err := tx.SetTotal(ctx, order.ID, order.TotalAmount); err != nil {
			return fmt.Errorf("orders: set total: %w", err)
		}
		if err := tx.DeleteLines(ctx, principal.ID, cart.LineIDs(lines)); err != nil {
			return fmt.Errorf("orders: clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) && s.deps.Metrics != nil {
			s.deps.Metrics.StockRejected(metricsKind)
		}
		return Order{}, err
	}
	s.afterCreate(ctx, principal, order)
	return order, nil
}

func (s *Service) checkoutLine(ctx context.Context, tx TxRepository, orderID int64, line cart.Line) (Item, error) {
	product, err := tx.GetProduct(ctx, line.ProductID)
	if err != nil {
		return Item{}, err
	}
	if product.SellingPrice == nil {
		return Item{}, shared.NewValidationError("cart", fmt.Sprintf("product %q has no selling price", product.Name))
	}
	if err := catalog.DecrementStock(ctx, tx, product.ID, line.Quantity); err != nil {
		return Item{}, err
	}
	item := Item{
		OrderID:      orderID,
		ProductID:    product.ID,
		Description:  itemDescription(product, line),
		SellingPrice: *product.SellingPrice,
		Rate:         product.ExcludePrice,
		Tax:          product.Tax,
		Discount:     line.Discount,
		Quantity:     line.Quantity,
	}
	if product.Type == catalog.ProductTypeVariant {
		id := product.ID
		item.VariantID = &id
	}
	item.ID, err = tx.InsertItem(ctx, item)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func itemDescription(p catalog.Product, line cart.Line) string {
	if line.Note != "" {
		return p.Name + " (" + line.Note + ")"
	}
	return p.Name
}

func (s *Service) obtainCheckoutLock(ctx context.Context, userID int64) (func(), error) {
	if s.deps.Locker == nil {
		return func() {}, nil
	}
	unlock, err := s.deps.Locker.Obtain(ctx, shared.CheckoutLockKey(metricsKind, userID), s.lockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return nil, ErrCheckoutInProgress
		}
		return nil, err
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("orders release checkout lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}, nil
}

func (s *Service) afterCreate(ctx context.Context, principal shared.Principal, order Order) {
	s.record(ctx, shared.NewAuditLog(principal.ID, "order.create", "order", order.ID, map[string]any{
		"invoice": order.Invoice,
		"items":   len(order.Items),
		"total":   order.TotalAmount.String(),
	}))
	if s.deps.Metrics != nil {
		s.deps.Metrics.OrderCreated(metricsKind)
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.EnqueueOrderCreated(ctx, order.ID); err != nil {
			s.logger.Warn("orders enqueue notification", slog.Int64("order_id", order.ID), slog.Any("error", err))
		}
	}
	s.bumpCache(ctx)
	s.logger.Info("order created", slog.Int64("order_id", order.ID), slog.String("invoice", order.Invoice), slog.Int("items", len(order.Items)))
}

// UpdateOrderStatus moves an order through the transition table.
// Setting the current status again changes nothing.
func (s *Service) UpdateOrderStatus(ctx context.Context, principal shared.Principal, orderID int64, next Status) (Order, error) {
	if !next.IsValid() {
		return Order{}, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", next))
	}
	var (
		order   Order
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransition(next) {
			return &TransitionError{From: order.Status, To: next}
		}
		if next.Restocks() {
			if err := catalog.RestockItems(ctx, tx, restockQuantities(order.Items)); err != nil {
				return err
			}
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, orderID, next, now); err != nil {
			return fmt.Errorf("orders: update status: %w", err)
		}
		order.Status, order.UpdatedAt, changed = next, now, true
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	if changed {
		s.record(ctx, shared.NewAuditLog(principal.ID, "order.status", "order", orderID, map[string]any{"status": string(next)}))
		s.bumpCache(ctx)
	}
	return order, nil
}

func restockQuantities(items []Item) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, it := range items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	return orders, nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Bump(ctx); err != nil {
		s.logger.Warn("orders bump report cache", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.deps.Audit == nil {
		return
	}
	if err := s.deps.Audit.Record(ctx, log); err != nil {
		s.logger.Warn("orders audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}
