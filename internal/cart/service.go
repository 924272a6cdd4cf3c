package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RepositoryPort abstracts cart persistence outside checkout.
type RepositoryPort interface {
	Insert(ctx context.Context, line Line) (int64, error)
	List(ctx context.Context, userID int64) ([]Line, error)
	Delete(ctx context.Context, userID, lineID int64) error
}

// TxStore is the cart view used inside a checkout transaction.
type TxStore interface {
	// Snapshot returns the user's lines as seen by the transaction.
	Snapshot(ctx context.Context, userID int64) ([]Line, error)
	// DeleteLines removes exactly ids; lines added after the snapshot survive.
	DeleteLines(ctx context.Context, userID int64, ids []int64) error
}

// CatalogPort is the slice of the catalog service the cart needs.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	UpdatePrice(ctx context.Context, actorID, id int64, sellingPrice decimal.Decimal) (catalog.Product, error)
}

// Service coordinates cart operations.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: catalog, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// AddLine puts a product into the user's cart. An existing line for the same product is never merged.
func (s *Service) AddLine(ctx context.Context, userID int64, input LineInput) (Line, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return Line{}, err
	}
	if input.Discount.Sign() < 0 {
		return Line{}, shared.NewValidationError("discount", "must be at least 0")
	}
	product, err := s.catalog.Get(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Line{}, shared.NewValidationError("product_id", "product does not exist")
		}
		return Line{}, err
	}
	line := Line{
		UserID:      userID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    input.Quantity,
		Discount:    input.Discount,
		Note:        input.Note,
		CreatedAt:   s.now(),
	}
	id, err := s.repo.Insert(ctx, line)
	if err != nil {
		if errors.Is(err, ErrDuplicateLine) {
			return Line{}, err
		}
		return Line{}, fmt.Errorf("cart: add line: %w", err)
	}
	line.ID = id
	return line, nil
}

// Lines lists the user's cart.
func (s *Service) Lines(ctx context.Context, userID int64) ([]Line, error) {
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart: list lines: %w", err)
	}
	return lines, nil
}

// RemoveLine deletes one of the user's lines.
func (s *Service) RemoveLine(ctx context.Context, userID, lineID int64) error {
	return s.repo.Delete(ctx, userID, lineID)
}

// UpdatePrices changes product selling prices. Only Accounts and Admin may call it.
func (s *Service) UpdatePrices(ctx context.Context, principal shared.Principal, changes []PriceChange) ([]catalog.Product, error) {
	if !principal.HasDesignation(shared.DesignationAccounts, shared.DesignationAdmin) {
		return nil, shared.ErrForbidden
	}
	if len(changes) == 0 {
		return nil, shared.NewValidationError("changes", "is required")
	}
	verr := &shared.ValidationError{}
	for i, change := range changes {
		if err := shared.ValidateStruct(change); err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		if change.SellingPrice.Sign() < 0 {
			verr.Add(fmt.Sprintf("changes[%d].selling_price", i), "must be at least 0")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	for _, change := range changes {
		if _, err := s.catalog.Get(ctx, change.ProductID); err != nil {
			return nil, err
		}
	}
	updated := make([]catalog.Product, 0, len(changes))
	for _, change := range changes {
		p, err := s.catalog.UpdatePrice(ctx, principal.ID, change.ProductID, change.SellingPrice)
		if err != nil {
			return updated, err
		}
		updated = append(updated, p)
	}
	s.logger.Info("cart prices updated", slog.Int64("actor_id", principal.ID), slog.Int("count", len(updated)))
	return updated, nil
}
