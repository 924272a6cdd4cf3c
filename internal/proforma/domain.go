// Package proforma issues non-binding quotations from a cart under per-company prefixes.
package proforma

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Status of a proforma order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransition allows only decisions on pending quotations.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next != StatusPending && next.IsValid()
}

var (
	ErrNotFound           = fmt.Errorf("proforma: order %w", shared.ErrNotFound)
	ErrCheckoutInProgress = fmt.Errorf("proforma: checkout in progress: %w", shared.ErrDuplicate)
	ErrDuplicateInvoice   = fmt.Errorf("proforma: invoice %w", shared.ErrDuplicate)
)

// TransitionError reports a disallowed status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("proforma: cannot move from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return shared.ErrInvalidTransition }

// Order is a quotation built from a cart.
type Order struct {
	ID             int64            `json:"id"`
	StaffID        int64            `json:"staff_id"`
	CustomerID     int64            `json:"customer_id"`
	BillingAddress string           `json:"billing_address"`
	CompanyName    string           `json:"company_name"`
	State          string           `json:"state"`
	Invoice        string           `json:"invoice"`
	Status         Status           `json:"status"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Bank           string           `json:"bank"`
	PaymentMethod  string           `json:"payment_method"`
	ShippingMode   *string          `json:"shipping_mode,omitempty"`
	CODAmount      *decimal.Decimal `json:"cod_amount,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Items          []Item           `json:"items,omitempty"`
}

// Item is a quoted line.
type Item struct {
	ID           int64           `json:"id"`
	ProformaID   int64           `json:"proforma_id"`
	ProductID    int64           `json:"product_id"`
	Description  string          `json:"description"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Rate         decimal.Decimal `json:"rate"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Quantity     int             `json:"quantity"`
}

// LineTotal is max(selling price - discount, 0) times quantity.
func (it Item) LineTotal() decimal.Decimal {
	net := it.SellingPrice.Sub(it.Discount)
	if net.Sign() < 0 {
		net = decimal.Zero
	}
	return net.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// CreateInput carries quotation header fields.
type CreateInput struct {
	CustomerID     int64            `json:"customer_id" validate:"required,gt=0"`
	BillingAddress string           `json:"billing_address" validate:"required,max=1000"`
	CompanyName    string           `json:"company_name" validate:"required"`
	State          string           `json:"state" validate:"required,max=100"`
	Bank           string           `json:"bank" validate:"required,max=255"`
	PaymentMethod  string           `json:"payment_method" validate:"required,max=64"`
	ShippingMode   *string          `json:"shipping_mode"`
	CODAmount      *decimal.Decimal `json:"cod_amount"`
}

// Validate runs tag validation and the shipping mode / COD pairing rule.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if (in.ShippingMode == nil) != (in.CODAmount == nil) {
		if in.ShippingMode == nil {
			return shared.NewValidationError("shipping_mode", "is required when cod_amount is set")
		}
		return shared.NewValidationError("cod_amount", "is required when shipping_mode is set")
	}
	return nil
}

// ListFilter narrows quotation listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
