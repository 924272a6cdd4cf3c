package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// ProductType distinguishes standalone products from members of a variant group.
type ProductType string

const (
	ProductTypeSingle  ProductType = "single"
	ProductTypeVariant ProductType = "variant"
)

// IsValid reports whether the type is known.
func (t ProductType) IsValid() bool {
	return t == ProductTypeSingle || t == ProductTypeVariant
}

// ApprovalStatus tracks catalog review of a product.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

var (
	// ErrInsufficientStock is matched by InsufficientStockError.
	ErrInsufficientStock = shared.ErrInsufficientStock
	// ErrProductNotFound indicates the product id does not resolve.
	ErrProductNotFound = fmt.Errorf("catalog: product %w", shared.ErrNotFound)
	// ErrInvalidQuantity indicates a non-positive stock movement.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
)

var hundred = decimal.NewFromInt(100)

// Product is a sellable item or one variant of a variant group.
type Product struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	HSNCode        string           `json:"hsn_code,omitempty"`
	GroupID        string           `json:"group_id"`
	Type           ProductType      `json:"type"`
	Family         string           `json:"family,omitempty"`
	Unit           string           `json:"unit,omitempty"`
	Color          string           `json:"color,omitempty"`
	Size           string           `json:"size,omitempty"`
	Stock          int              `json:"stock"`
	PurchaseRate   decimal.Decimal  `json:"purchase_rate"`
	SellingPrice   *decimal.Decimal `json:"selling_price"`
	Tax            decimal.Decimal  `json:"tax"`
	ExcludePrice   decimal.Decimal  `json:"exclude_price"`
	ApprovalStatus ApprovalStatus   `json:"approval_status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// RecomputeExcludePrice derives the tax exclusive price from selling price and tax.
func RecomputeExcludePrice(p *Product) {
	p.ExcludePrice = ExcludePrice(p.SellingPrice, p.Tax)
}

// ExcludePrice returns sellingPrice / (1 + tax/100) rounded to cents, zero when unpriced.
func ExcludePrice(sellingPrice *decimal.Decimal, tax decimal.Decimal) decimal.Decimal {
	if sellingPrice == nil {
		return decimal.Zero
	}
	divisor := decimal.NewFromInt(1).Add(tax.Div(hundred))
	if divisor.Sign() <= 0 {
		return decimal.Zero
	}
	return sellingPrice.Div(divisor).Round(2)
}

// ValidateTax rejects tax percentages that make the exclusive price undefined.
func ValidateTax(tax decimal.Decimal) error {
	if tax.LessThanOrEqual(hundred.Neg()) {
		return shared.NewValidationError("tax", "must be greater than -100")
	}
	return nil
}

// Validate checks product fields before persisting.
func (p Product) Validate() error {
	verr := &shared.ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		verr.Add("name", "is required")
	}
	if !p.Type.IsValid() {
		verr.Add("type", "must be one of [single variant]")
	}
	if p.Stock < 0 {
		verr.Add("stock", "must be at least 0")
	}
	if p.SellingPrice != nil && p.SellingPrice.Sign() < 0 {
		verr.Add("selling_price", "must be at least 0")
	}
	if p.PurchaseRate.Sign() < 0 {
		verr.Add("purchase_rate", "must be at least 0")
	}
	if err := ValidateTax(p.Tax); err != nil {
		verr.Add("tax", "must be greater than -100")
	}
	return verr.OrNil()
}

// InsufficientStockError names the product whose stock cannot cover a request.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id %d): requested %d, available %d", e.Name, e.ProductID, e.Requested, e.Available)
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// IsInsufficientStock reports whether err carries an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// Group is one logical catalog entry: a representative plus its variants.
type Group struct {
	GroupID        string    `json:"group_id"`
	Representative Product   `json:"representative"`
	Variants       []Product `json:"variants,omitempty"`
	TotalStock     int       `json:"total_stock"`
}

// GroupProducts deduplicates products by GroupID keeping first-seen order.
// The first product of each group is its representative.
func GroupProducts(products []Product) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0, len(products))
	for _, p := range products {
		key := p.GroupID
		if key == "" {
			key = fmt.Sprintf("product:%d", p.ID)
		}
		pos, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, Group{GroupID: p.GroupID, Representative: p, TotalStock: p.Stock})
			if p.Type == ProductTypeVariant {
				groups[len(groups)-1].Variants = []Product{p}
			}
			continue
		}
		g := &groups[pos]
		g.Variants = append(g.Variants, p)
		g.TotalStock += p.Stock
	}
	return groups
}

// Attribute is one variant dimension such as colour or size.
type Attribute struct {
	Name   string   `json:"name" validate:"required"`
	Values []string `json:"values" validate:"required,min=1,dive,required"`
}

// GenerateVariants expands the cartesian product of attribute values into variant products.
// Names are hyphen joined; the first attribute fills Color and the second fills Size.
func GenerateVariants(base Product, attributes []Attribute) []Product {
	if len(attributes) == 0 {
		return nil
	}
	combos := [][]string{{}}
	for _, attr := range attributes {
		next := make([][]string, 0, len(combos)*len(attr.Values))
		for _, combo := range combos {
			for _, v := range attr.Values {
				c := make([]string, len(combo), len(combo)+1)
				copy(c, combo)
				next = append(next, append(c, v))
			}
		}
		combos = next
	}
	variants := make([]Product, 0, len(combos))
	for _, combo := range combos {
		v := base
		v.ID = 0
		v.Type = ProductTypeVariant
		v.Name = base.Name + "-" + strings.Join(combo, "-")
		if len(combo) > 0 {
			v.Color = combo[0]
		}
		if len(combo) > 1 {
			v.Size = combo[1]
		}
		RecomputeExcludePrice(&v)
		variants = append(variants, v)
	}
	return variants
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search string
	Family string
	Limit  int
	Offset int
}
