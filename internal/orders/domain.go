package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Status is the lifecycle label of an order.
type Status string

const (
	StatusPending         Status = "Pending"
	StatusApproved        Status = "Approved"
	StatusShipped         Status = "Shipped"
	StatusInvoiceCreated  Status = "Invoice Created"
	StatusInvoiceApproved Status = "Invoice Approved"
	StatusToPrint         Status = "To Print"
	StatusCompleted       Status = "Completed"
	StatusCancelled       Status = "Cancelled"
	StatusRejected        Status = "Rejected"
	StatusRefunded        Status = "Refunded"
	StatusReturn          Status = "Return"
)

var transitions = map[Status][]Status{
	StatusPending:         {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:        {StatusShipped, StatusInvoiceCreated, StatusCancelled},
	StatusShipped:         {StatusInvoiceCreated, StatusCompleted, StatusReturn},
	StatusInvoiceCreated:  {StatusInvoiceApproved, StatusCancelled},
	StatusInvoiceApproved: {StatusToPrint, StatusCompleted, StatusShipped},
	StatusToPrint:         {StatusCompleted, StatusShipped},
	StatusCompleted:       {StatusReturn, StatusRefunded},
	StatusReturn:          {StatusRefunded},
	StatusCancelled:       nil,
	StatusRejected:        nil,
	StatusRefunded:        nil,
}

// IsValid reports whether s is part of the status vocabulary.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Restocks reports whether entering s returns the order's items to stock.
func (s Status) Restocks() bool {
	return s == StatusCancelled || s == StatusRejected
}

// Shippable reports whether shipments may be recorded against an order in s.
func (s Status) Shippable() bool {
	switch s {
	case StatusApproved, StatusInvoiceCreated, StatusInvoiceApproved, StatusToPrint, StatusShipped:
		return true
	}
	return false
}

// TransitionError is returned for moves outside the transition table.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("orders: cannot move from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return shared.ErrInvalidTransition }

// PaymentStatus summarises receipts against the order total.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPartial PaymentStatus = "Partial"
	PaymentPaid    PaymentStatus = "Paid"
)

// PaymentStatusFor derives the payment status from the total and amount received.
func PaymentStatusFor(total, received decimal.Decimal) PaymentStatus {
	switch {
	case received.Sign() <= 0:
		return PaymentUnpaid
	case received.LessThan(total):
		return PaymentPartial
	default:
		return PaymentPaid
	}
}

var (
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = fmt.Errorf("orders: order %w", shared.ErrNotFound)
	// ErrCompanyNotFound indicates the issuing company does not exist.
	ErrCompanyNotFound = fmt.Errorf("orders: company %w", shared.ErrNotFound)
	// ErrCheckoutInProgress indicates the same cart is already being checked out.
	ErrCheckoutInProgress = fmt.Errorf("orders: checkout in progress: %w", shared.ErrDuplicate)
	// ErrDuplicateInvoice indicates an invoice number collision.
	ErrDuplicateInvoice = fmt.Errorf("orders: invoice %w", shared.ErrDuplicate)
)

// Company issues invoices under its prefix.
type Company struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	InvoicePrefix string `json:"invoice_prefix"`
}

// Order is a confirmed sale created from a cart.
type Order struct {
	ID             int64            `json:"id"`
	StaffID        int64            `json:"staff_id"`
	CustomerID     int64            `json:"customer_id"`
	BillingAddress string           `json:"billing_address"`
	CompanyID      int64            `json:"company_id"`
	State          string           `json:"state"`
	Invoice        string           `json:"invoice"`
	Status         Status           `json:"status"`
	PaymentStatus  PaymentStatus    `json:"payment_status"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Bank           string           `json:"bank"`
	PaymentMethod  string           `json:"payment_method"`
	ShippingMode   *string          `json:"shipping_mode,omitempty"`
	CODAmount      *decimal.Decimal `json:"cod_amount,omitempty"`
	Remark         string           `json:"remark,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Items          []Item           `json:"items,omitempty"`
}

// Item snapshots a cart line at order time.
type Item struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	VariantID    *int64          `json:"variant_id,omitempty"`
	Description  string          `json:"description"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Rate         decimal.Decimal `json:"rate"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Quantity     int             `json:"quantity"`
}

// NetPrice is the unit selling price after discount, floored at zero.
func (it Item) NetPrice() decimal.Decimal {
	net := it.SellingPrice.Sub(it.Discount)
	if net.Sign() < 0 {
		return decimal.Zero
	}
	return net
}

// ExcludePrice is the discounted unit price without tax.
func (it Item) ExcludePrice() decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(it.Tax.Div(decimal.NewFromInt(100)))
	if divisor.Sign() <= 0 {
		return decimal.Zero
	}
	return it.NetPrice().Div(divisor).Round(2)
}

// LineTotal is the tax inclusive amount of the line.
func (it Item) LineTotal() decimal.Decimal {
	return it.NetPrice().Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// TotalOf sums line totals.
func TotalOf(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CreateInput carries checkout fields; items come from the caller's cart.
type CreateInput struct {
	CustomerID     int64            `json:"customer_id" validate:"required,gt=0"`
	BillingAddress string           `json:"billing_address" validate:"required,max=1000"`
	CompanyID      int64            `json:"company_id" validate:"required,gt=0"`
	State          string           `json:"state" validate:"required,max=100"`
	Bank           string           `json:"bank" validate:"required,max=255"`
	PaymentMethod  string           `json:"payment_method" validate:"required,max=64"`
	ShippingMode   *string          `json:"shipping_mode"`
	CODAmount      *decimal.Decimal `json:"cod_amount"`
	Remark         string           `json:"remark" validate:"max=1000"`
}

// Validate runs tag validation and the shipping mode / COD pairing rule.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	verr := &shared.ValidationError{}
	if (in.ShippingMode == nil) != (in.CODAmount == nil) {
		if in.ShippingMode == nil {
			verr.Add("shipping_mode", "is required when cod_amount is set")
		} else {
			verr.Add("cod_amount", "is required when shipping_mode is set")
		}
	}
	if in.CODAmount != nil && in.CODAmount.Sign() < 0 {
		verr.Add("cod_amount", "must be at least 0")
	}
	return verr.OrNil()
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status     Status
	CustomerID int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
