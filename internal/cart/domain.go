package cart

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

var (
	// ErrDuplicateLine indicates the product is already in the user's cart.
	ErrDuplicateLine = fmt.Errorf("cart: product already in cart: %w", shared.ErrDuplicate)
	// ErrLineNotFound indicates the cart line does not belong to the user or is gone.
	ErrLineNotFound = fmt.Errorf("cart: line %w", shared.ErrNotFound)
)

// Line is one product entry in a staff member's cart.
type Line struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Discount    decimal.Decimal `json:"discount"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LineInput is the payload for adding a product to the cart.
type LineInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	Discount  decimal.Decimal `json:"discount"`
	Note      string          `json:"note" validate:"max=500"`
}

// PriceChange sets a new selling price on a product.
type PriceChange struct {
	ProductID    int64           `json:"product_id" validate:"required,gt=0"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// LineIDs returns the ids of lines, used to clear exactly a snapshot.
func LineIDs(lines []Line) []int64 {
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
	}
	return ids
}
