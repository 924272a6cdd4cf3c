package customers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ttacon/libphonenumber"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

var (
	ErrNotFound  = fmt.Errorf("customers: customer %w", shared.ErrNotFound)
	ErrDuplicate = fmt.Errorf("customers: %w", shared.ErrDuplicate)
)

// DuplicateError names the unique field that collided.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("customers: %s already registered", e.Field)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

var gstPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// Customer buys from the business and owns orders.
type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	GSTNumber      string    `json:"gst_number,omitempty"`
	BillingAddress string    `json:"billing_address"`
	State          string    `json:"state"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateInput carries a new customer.
type CreateInput struct {
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Phone          string `json:"phone" validate:"required,max=32"`
	GSTNumber      string `json:"gst_number" validate:"omitempty,len=15"`
	BillingAddress string `json:"billing_address" validate:"required,max=1000"`
	State          string `json:"state" validate:"required,max=100"`
}

// NormalizePhone parses raw in region and returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	num, err := libphonenumber.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", shared.NewValidationError("phone", "is not a phone number")
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", shared.NewValidationError("phone", "is not a valid number")
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// normalize validates input and returns the canonical customer fields.
func (in CreateInput) normalize(region string) (Customer, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.GSTNumber = strings.ToUpper(strings.TrimSpace(in.GSTNumber))
	if err := shared.ValidateStruct(in); err != nil {
		return Customer{}, err
	}
	if in.GSTNumber != "" && !gstPattern.MatchString(in.GSTNumber) {
		return Customer{}, shared.NewValidationError("gst_number", "is not a valid GSTIN")
	}
	phone, err := NormalizePhone(in.Phone, region)
	if err != nil {
		return Customer{}, err
	}
	return Customer{
		Name:           strings.TrimSpace(in.Name),
		Email:          in.Email,
		Phone:          phone,
		GSTNumber:      in.GSTNumber,
		BillingAddress: in.BillingAddress,
		State:          in.State,
	}, nil
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
