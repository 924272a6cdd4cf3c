package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Purpose tags why money was received.
type Purpose string

const (
	PurposeAdvance Purpose = "advance"
	PurposeInvoice Purpose = "invoice"
	PurposeCOD     Purpose = "cod"
	PurposeRefund  Purpose = "refund"
)

// IsValid reports whether p is a known purpose.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeAdvance, PurposeInvoice, PurposeCOD, PurposeRefund:
		return true
	}
	return false
}

// Receipt is a payment recorded against an order.
type Receipt struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	CustomerID    int64           `json:"customer_id"`
	Code          string          `json:"code"`
	Sequence      int64           `json:"sequence"`
	Amount        decimal.Decimal `json:"amount"`
	Bank          string          `json:"bank"`
	TransactionID string          `json:"transaction_id"`
	ReceivedAt    time.Time       `json:"received_at"`
	CreatedBy     int64           `json:"created_by"`
	Remark        string          `json:"remark,omitempty"`
	Purpose       Purpose         `json:"purpose"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordInput carries a payment to record.
type RecordInput struct {
	OrderID        int64           `json:"order_id" validate:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount"`
	Bank           string          `json:"bank" validate:"required,max=255"`
	TransactionID  string          `json:"transaction_id" validate:"required,max=128"`
	ReceivedAt     time.Time       `json:"received_at" validate:"required"`
	Remark         string          `json:"remark" validate:"max=1000"`
	Purpose        Purpose         `json:"purpose" validate:"required,oneof=advance invoice cod refund"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=128"`
}

// Validate checks tags and the positive amount rule.
func (in RecordInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.Amount.Sign() <= 0 {
		return shared.NewValidationError("amount", "must be greater than 0")
	}
	return nil
}

// Balance reconciles an order total with its receipts.
type Balance struct {
	OrderID       int64                `json:"order_id"`
	Invoice       string               `json:"invoice"`
	Total         decimal.Decimal      `json:"total"`
	Received      decimal.Decimal      `json:"received"`
	Balance       decimal.Decimal      `json:"balance"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

// LedgerEntry is one order of a customer with its receipts.
type LedgerEntry struct {
	Order    orders.Order `json:"order"`
	Receipts []Receipt    `json:"receipts"`
	Balance  Balance      `json:"balance"`
}

// Recorded is the outcome of RecordPayment.
type Recorded struct {
	Receipt Receipt `json:"receipt"`
	Balance Balance `json:"balance"`
}

// Received sums receipt amounts.
func Received(receipts []Receipt) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range receipts {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// BalanceOf computes total_amount minus the sum of receipts.
func BalanceOf(order orders.Order, receipts []Receipt) Balance {
	received := Received(receipts)
	return Balance{
		OrderID:       order.ID,
		Invoice:       order.Invoice,
		Total:         order.TotalAmount,
		Received:      received,
		Balance:       order.TotalAmount.Sub(received),
		PaymentStatus: orders.PaymentStatusFor(order.TotalAmount, received),
	}
}
