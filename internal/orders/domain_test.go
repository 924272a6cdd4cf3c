package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	require.True(t, StatusPending.CanTransition(StatusApproved))
	require.True(t, StatusApproved.CanTransition(StatusInvoiceCreated))
	require.True(t, StatusInvoiceApproved.CanTransition(StatusToPrint))
	require.True(t, StatusCompleted.CanTransition(StatusReturn))
	require.False(t, StatusPending.CanTransition(StatusShipped))
	require.False(t, StatusRefunded.CanTransition(StatusPending))
	require.False(t, Status("Unknown").IsValid())

	for from := range transitions {
		require.False(t, from.CanTransition(from), "self transition for %s", from)
	}
}

func TestItemPricing(t *testing.T) {
	it := Item{SellingPrice: decimal.NewFromInt(118), Tax: decimal.NewFromInt(18), Discount: decimal.Zero, Quantity: 2}
	require.Equal(t, "100", it.ExcludePrice().String())
	require.Equal(t, "236", it.LineTotal().String())

	it.Discount = decimal.NewFromInt(200)
	require.True(t, it.ExcludePrice().IsZero())
	require.True(t, it.LineTotal().IsZero())
}

func TestPaymentStatusFor(t *testing.T) {
	total := decimal.NewFromInt(500)
	require.Equal(t, PaymentUnpaid, PaymentStatusFor(total, decimal.Zero))
	require.Equal(t, PaymentPartial, PaymentStatusFor(total, decimal.NewFromInt(200)))
	require.Equal(t, PaymentPaid, PaymentStatusFor(total, decimal.NewFromInt(500)))
	require.Equal(t, PaymentPaid, PaymentStatusFor(total, decimal.NewFromInt(650)))
}

func TestCreateInputPairRule(t *testing.T) {
	in := validInput()
	require.NoError(t, in.Validate())
	cod := decimal.NewFromInt(10)
	in.CODAmount = &cod
	require.Error(t, in.Validate())
}
