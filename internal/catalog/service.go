package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RepositoryPort abstracts product persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Update(ctx context.Context, p Product) error
	UpdatePrice(ctx context.Context, id int64, sellingPrice, excludePrice decimal.Decimal) error
}

// TxRepository exposes writes that run inside a transaction.
type TxRepository interface {
	Insert(ctx context.Context, p Product) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ProductInput carries fields for creating or replacing a product.
type ProductInput struct {
	Name         string           `json:"name" validate:"required,max=255"`
	HSNCode      string           `json:"hsn_code" validate:"max=32"`
	GroupID      string           `json:"group_id" validate:"max=64"`
	Type         ProductType      `json:"type" validate:"required,oneof=single variant"`
	Family       string           `json:"family"`
	Unit         string           `json:"unit"`
	Color        string           `json:"color"`
	Size         string           `json:"size"`
	// Stock seeds a new product. Update ignores it; stock only moves through orders.
	Stock        int              `json:"stock" validate:"gte=0"`
	PurchaseRate decimal.Decimal  `json:"purchase_rate"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	Tax          decimal.Decimal  `json:"tax"`
}

func (in ProductInput) product() Product {
	return Product{
		Name:           in.Name,
		HSNCode:        in.HSNCode,
		GroupID:        in.GroupID,
		Type:           in.Type,
		Family:         in.Family,
		Unit:           in.Unit,
		Color:          in.Color,
		Size:           in.Size,
		Stock:          in.Stock,
		PurchaseRate:   in.PurchaseRate,
		SellingPrice:   in.SellingPrice,
		Tax:            in.Tax,
		ApprovalStatus: ApprovalPending,
	}
}

// Create validates and inserts a product.
func (s *Service) Create(ctx context.Context, actorID int64, input ProductInput) (Product, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return Product{}, err
	}
	p := input.product()
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	RecomputeExcludePrice(&p)
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	s.record(ctx, shared.NewAuditLog(actorID, "product.create", "product", p.ID, map[string]any{"name": p.Name}))
	return p, nil
}

// Update replaces editable fields and recomputes the exclusive price.
func (s *Service) Update(ctx context.Context, actorID, id int64, input ProductInput) (Product, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return Product{}, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p := input.product()
	p.ID = existing.ID
	p.Stock = existing.Stock
	p.ApprovalStatus = existing.ApprovalStatus
	p.CreatedAt = existing.CreatedAt
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	RecomputeExcludePrice(&p)
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Product{}, fmt.Errorf("catalog: update product: %w", err)
	}
	s.record(ctx, shared.NewAuditLog(actorID, "product.update", "product", p.ID, nil))
	return p, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// ListGrouped lists products deduplicated by variant group.
func (s *Service) ListGrouped(ctx context.Context, filter ListFilter) ([]Group, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	return GroupProducts(products), nil
}

// UpdatePrice changes the selling price of a product and recomputes its exclusive price.
func (s *Service) UpdatePrice(ctx context.Context, actorID, id int64, sellingPrice decimal.Decimal) (Product, error) {
	if sellingPrice.Sign() < 0 {
		return Product{}, shared.NewValidationError("selling_price", "must be at least 0")
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	old := p.SellingPrice
	p.SellingPrice = &sellingPrice
	RecomputeExcludePrice(&p)
	if err := s.repo.UpdatePrice(ctx, id, sellingPrice, p.ExcludePrice); err != nil {
		return Product{}, fmt.Errorf("catalog: update price: %w", err)
	}
	meta := map[string]any{"selling_price": sellingPrice.String()}
	if old != nil {
		meta["previous_price"] = old.String()
	}
	s.record(ctx, shared.NewAuditLog(actorID, "product.price", "product", id, meta))
	return p, nil
}

// CreateVariants expands attributes against a base product and inserts every combination.
func (s *Service) CreateVariants(ctx context.Context, actorID, baseID int64, attributes []Attribute) ([]Product, error) {
	if len(attributes) == 0 {
		return nil, shared.NewValidationError("attributes", "is required")
	}
	for i, attr := range attributes {
		if err := shared.ValidateStruct(attr); err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
	}
	base, err := s.repo.Get(ctx, baseID)
	if err != nil {
		return nil, err
	}
	if base.GroupID == "" {
		base.GroupID = fmt.Sprintf("G%06d", base.ID)
	}
	base.Stock = 0
	base.ApprovalStatus = ApprovalPending
	variants := GenerateVariants(base, attributes)
	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i := range variants {
			variants[i].CreatedAt, variants[i].UpdatedAt = now, now
			id, err := tx.Insert(ctx, variants[i])
			if err != nil {
				return err
			}
			variants[i].ID = id
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: create variants: %w", err)
	}
	s.record(ctx, shared.NewAuditLog(actorID, "product.variants", "product", baseID, map[string]any{"count": len(variants)}))
	return variants, nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("catalog audit", slog.String("action", log.Action), slog.Any("error", err))
	}
}
