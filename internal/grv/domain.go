// Package grv tracks goods return vouchers raised against orders.
package grv

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Status of a return voucher.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Remark says whether the customer wants goods back or money back.
type Remark string

const (
	RemarkReturn Remark = "return"
	RemarkRefund Remark = "refund"
)

var (
	ErrNotFound       = fmt.Errorf("grv: voucher %w", shared.ErrNotFound)
	ErrOrderNotFound  = fmt.Errorf("grv: order %w", shared.ErrNotFound)
	ErrAlreadyDecided = fmt.Errorf("grv: voucher already decided: %w", shared.ErrInvalidTransition)
)

// Return is a goods return voucher.
type Return struct {
	ID                 int64           `json:"id"`
	OrderID            int64           `json:"order_id"`
	ProductDescription string          `json:"product_description"`
	Reason             string          `json:"reason"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity"`
	Remark             Remark          `json:"remark"`
	Status             Status          `json:"status"`
	CreatedBy          int64           `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CreateInput carries a new voucher.
type CreateInput struct {
	OrderID            int64           `json:"order_id" validate:"required,gt=0"`
	ProductDescription string          `json:"product_description" validate:"required,max=500"`
	Reason             string          `json:"reason" validate:"required,max=1000"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity" validate:"required,gte=1"`
	Remark             Remark          `json:"remark" validate:"required,oneof=return refund"`
}

// Validate checks tags and the non-negative price.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.Price.Sign() < 0 {
		return shared.NewValidationError("price", "must be at least 0")
	}
	return nil
}
