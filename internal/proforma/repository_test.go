package proforma

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/platform/db/dbtest"
)

func TestRepositoryRoundTripWithoutShipping(t *testing.T) {
	pool := dbtest.Pool(t)
	fx := dbtest.SeedFixture(t, pool)
	repo := NewRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	var id int64
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.Insert(ctx, Order{
			StaffID:       fx.UserID,
			CustomerID:    fx.CustomerID,
			CompanyName:   "Head Office",
			Invoice:       "TEST/PF/" + now.Format("150405.000000"),
			Status:        StatusPending,
			TotalAmount:   decimal.NewFromInt(118),
			Bank:          "HDFC",
			PaymentMethod: "UPI",
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Nil(t, got.ShippingMode)
	require.Nil(t, got.CODAmount)
	require.Equal(t, "Head Office", got.CompanyName)
}
