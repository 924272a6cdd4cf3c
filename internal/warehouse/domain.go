package warehouse

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// Stage tracks a box through the dispatch desk.
type Stage string

const (
	StagePacked   Stage = "packed"
	StageVerified Stage = "verified"
	StageChecked  Stage = "checked"
	StageShipped  Stage = "shipped"
)

var stageOrder = map[Stage]int{StagePacked: 0, StageVerified: 1, StageChecked: 2, StageShipped: 3}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Before reports whether s comes earlier in the dispatch flow than other.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

// volumetricDivisor converts cubic centimetres to kilograms.
var volumetricDivisor = decimal.NewFromInt(6000)

var (
	ErrShipmentNotFound = fmt.Errorf("warehouse: shipment %w", shared.ErrNotFound)
	ErrNotShippable     = fmt.Errorf("warehouse: order status does not allow shipping: %w", shared.ErrInvalidTransition)
	ErrStageBackwards   = fmt.Errorf("warehouse: stage can only move forward: %w", shared.ErrInvalidTransition)
	ErrDuplicateBox     = fmt.Errorf("warehouse: box id %w", shared.ErrDuplicate)
)

// Shipment is one box dispatched for an order.
type Shipment struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	BoxID          string          `json:"box_id"`
	Weight         decimal.Decimal `json:"weight"`
	Length         decimal.Decimal `json:"length"`
	Breadth        decimal.Decimal `json:"breadth"`
	Height         decimal.Decimal `json:"height"`
	Carrier        string          `json:"carrier"`
	TrackingID     string          `json:"tracking_id"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	ActualWeight   decimal.Decimal `json:"actual_weight"`
	ParcelAmount   decimal.Decimal `json:"parcel_amount"`
	Stage          Stage           `json:"stage"`
	ShippedDate    *time.Time      `json:"shipped_date,omitempty"`
	PackedBy       int64           `json:"packed_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// VolumeWeight is length*breadth*height/6000. It is derived on read and never stored.
func (s Shipment) VolumeWeight() decimal.Decimal {
	return s.Length.Mul(s.Breadth).Mul(s.Height).Div(volumetricDivisor)
}

// ChargeableWeight is the greater of actual and volumetric weight.
func (s Shipment) ChargeableWeight() decimal.Decimal {
	return decimal.Max(s.ActualWeight, s.VolumeWeight())
}

// View adds derived weights for API responses.
type View struct {
	Shipment
	VolumeWeight     decimal.Decimal `json:"volume_weight"`
	ChargeableWeight decimal.Decimal `json:"chargeable_weight"`
}

// NewView wraps a shipment with its derived weights.
func NewView(s Shipment) View {
	return View{Shipment: s, VolumeWeight: s.VolumeWeight(), ChargeableWeight: s.ChargeableWeight()}
}

// RecordInput carries a box to record.
type RecordInput struct {
	OrderID        int64           `json:"order_id" validate:"required,gt=0"`
	BoxID          string          `json:"box_id" validate:"max=64"`
	Weight         decimal.Decimal `json:"weight"`
	Length         decimal.Decimal `json:"length"`
	Breadth        decimal.Decimal `json:"breadth"`
	Height         decimal.Decimal `json:"height"`
	Carrier        string          `json:"carrier" validate:"required,max=128"`
	TrackingID     string          `json:"tracking_id" validate:"max=128"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	ActualWeight   decimal.Decimal `json:"actual_weight"`
	ParcelAmount   decimal.Decimal `json:"parcel_amount"`
	Stage          Stage           `json:"stage" validate:"omitempty,oneof=packed verified checked shipped"`
	ShippedDate    *time.Time      `json:"shipped_date"`
}

// Validate checks tags and that measures are not negative.
func (in RecordInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	verr := &shared.ValidationError{}
	measures := map[string]decimal.Decimal{
		"weight":          in.Weight,
		"length":          in.Length,
		"breadth":         in.Breadth,
		"height":          in.Height,
		"shipping_charge": in.ShippingCharge,
		"actual_weight":   in.ActualWeight,
		"parcel_amount":   in.ParcelAmount,
	}
	for field, v := range measures {
		if v.Sign() < 0 {
			verr.Add(field, "must be at least 0")
		}
	}
	return verr.OrNil()
}

// DailySummary totals the shipments dispatched on one day.
type DailySummary struct {
	Date           string          `json:"date"`
	Boxes          int             `json:"boxes"`
	Weight         decimal.Decimal `json:"weight"`
	VolumeWeight   decimal.Decimal `json:"volume_weight"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	ActualWeight   decimal.Decimal `json:"actual_weight"`
	ParcelAmount   decimal.Decimal `json:"parcel_amount"`
}

// Summarize aggregates shipments already filtered to one shipped date.
func Summarize(date time.Time, shipments []Shipment) DailySummary {
	sum := DailySummary{
		Date:           date.Format("2006-01-02"),
		Weight:         decimal.Zero,
		VolumeWeight:   decimal.Zero,
		ShippingCharge: decimal.Zero,
		ActualWeight:   decimal.Zero,
		ParcelAmount:   decimal.Zero,
	}
	for _, s := range shipments {
		sum.Boxes++
		sum.Weight = sum.Weight.Add(s.Weight)
		sum.VolumeWeight = sum.VolumeWeight.Add(s.VolumeWeight())
		sum.ShippingCharge = sum.ShippingCharge.Add(s.ShippingCharge)
		sum.ActualWeight = sum.ActualWeight.Add(s.ActualWeight)
		sum.ParcelAmount = sum.ParcelAmount.Add(s.ParcelAmount)
	}
	return sum
}

// DateOnly truncates t to a UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
