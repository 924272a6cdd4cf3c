package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Range is an inclusive day range.
type Range struct {
	From time.Time
	To   time.Time
}

// Validate rejects inverted ranges.
func (r Range) Validate() error {
	if r.From.After(r.To) {
		return shared.NewValidationError("from", "must not be after to")
	}
	return nil
}

// End is the exclusive upper bound used by queries.
func (r Range) End() time.Time {
	return r.To.AddDate(0, 0, 1)
}

func (r Range) token() string {
	return r.From.Format(time.DateOnly) + ":" + r.To.Format(time.DateOnly)
}

// StatusTotal aggregates orders of one status.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// SalesSummary totals orders created in a range.
type SalesSummary struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Orders   int             `json:"orders"`
	Amount   decimal.Decimal `json:"amount"`
	ByStatus []StatusTotal   `json:"by_status"`
}

// PurposeTotal aggregates receipts of one purpose.
type PurposeTotal struct {
	Purpose string          `json:"purpose"`
	Count   int             `json:"count"`
	Amount  decimal.Decimal `json:"amount"`
}

// Collections totals receipts received in a range.
type Collections struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Receipts  int             `json:"receipts"`
	Amount    decimal.Decimal `json:"amount"`
	ByPurpose []PurposeTotal  `json:"by_purpose"`
}

// GroupStock is the on-hand quantity of one variant group.
type GroupStock struct {
	GroupID  string `json:"group_id"`
	Products int    `json:"products"`
	Stock    int64  `json:"stock"`
}

func newSalesSummary(r Range, rows []StatusTotal) SalesSummary {
	out := SalesSummary{From: r.From.Format(time.DateOnly), To: r.To.Format(time.DateOnly), Amount: decimal.Zero, ByStatus: rows}
	for _, row := range rows {
		out.Orders += row.Count
		out.Amount = out.Amount.Add(row.Amount)
	}
	return out
}

func newCollections(r Range, rows []PurposeTotal) Collections {
	out := Collections{From: r.From.Format(time.DateOnly), To: r.To.Format(time.DateOnly), Amount: decimal.Zero, ByPurpose: rows}
	for _, row := range rows {
		out.Receipts += row.Count
		out.Amount = out.Amount.Add(row.Amount)
	}
	return out
}
