package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

func TestExcludePrice(t *testing.T) {
	cases := []struct {
		name  string
		price *decimal.Decimal
		tax   string
		want  string
	}{
		{name: "gst 18", price: price("118"), tax: "18", want: "100"},
		{name: "zero tax", price: price("49.99"), tax: "0", want: "49.99"},
		{name: "rounded", price: price("100"), tax: "12", want: "89.29"},
		{name: "unpriced", price: nil, tax: "18", want: "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExcludePrice(tc.price, decimal.RequireFromString(tc.tax))
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestExcludePriceInvariantAfterRecompute(t *testing.T) {
	for _, raw := range []string{"0", "5", "12", "18", "28", "-50"} {
		tax := decimal.RequireFromString(raw)
		p := Product{SellingPrice: price("999.99"), Tax: tax}
		RecomputeExcludePrice(&p)
		want := p.SellingPrice.Div(decimal.NewFromInt(1).Add(tax.Div(decimal.NewFromInt(100))))
		require.True(t, p.ExcludePrice.Sub(want).Abs().LessThanOrEqual(decimal.RequireFromString("0.005")), "tax %s", raw)
	}
}

func TestGroupProductsDeduplicates(t *testing.T) {
	products := []Product{
		{ID: 1, Name: "Tee-Red-S", GroupID: "G1", Type: ProductTypeVariant, Stock: 2},
		{ID: 2, Name: "Tee-Red-M", GroupID: "G1", Type: ProductTypeVariant, Stock: 3},
		{ID: 3, Name: "Mug", Type: ProductTypeSingle, Stock: 7},
		{ID: 4, Name: "Tee-Blue-S", GroupID: "G1", Type: ProductTypeVariant, Stock: 5},
	}
	groups := GroupProducts(products)
	require.Len(t, groups, 2)
	require.Equal(t, int64(1), groups[0].Representative.ID)
	require.Len(t, groups[0].Variants, 3)
	require.Equal(t, 10, groups[0].TotalStock)
	require.Equal(t, 7, groups[1].TotalStock)
	require.Empty(t, groups[1].Variants)
}

func TestGenerateVariantsCartesianProduct(t *testing.T) {
	base := Product{Name: "Shirt", GroupID: "G9", SellingPrice: price("118"), Tax: decimal.NewFromInt(18)}
	variants := GenerateVariants(base, []Attribute{
		{Name: "color", Values: []string{"Red", "Blue"}},
		{Name: "size", Values: []string{"M", "L"}},
		{Name: "fit", Values: []string{"Slim"}},
	})
	require.Len(t, variants, 4)
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.Name)
		require.Equal(t, "G9", v.GroupID)
		require.Equal(t, "100", v.ExcludePrice.String())
	}
	require.Equal(t, []string{"Shirt-Red-M-Slim", "Shirt-Red-L-Slim", "Shirt-Blue-M-Slim", "Shirt-Blue-L-Slim"}, names)
	require.Equal(t, "Red", variants[0].Color)
	require.Equal(t, "M", variants[0].Size)
	require.Nil(t, GenerateVariants(base, nil))
}

func TestDecrementStock(t *testing.T) {
	stock := &memoryStock{products: map[int64]Product{
		1: {ID: 1, Name: "Widget", Stock: 10},
		2: {ID: 2, Name: "Gadget", Stock: 2},
	}}
	ctx := context.Background()

	require.NoError(t, DecrementStock(ctx, stock, 1, 3))
	require.Equal(t, 7, stock.products[1].Stock)

	err := DecrementStock(ctx, stock, 2, 5)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, "Gadget", stockErr.Name)
	require.Equal(t, 2, stockErr.Available)
	require.Equal(t, 2, stock.products[2].Stock)

	require.ErrorIs(t, DecrementStock(ctx, stock, 3, 1), shared.ErrNotFound)
	require.ErrorIs(t, DecrementStock(ctx, stock, 1, 0), shared.ErrValidation)

	require.NoError(t, RestockItems(ctx, stock, map[int64]int{1: 3, 2: 0}))
	require.Equal(t, 10, stock.products[1].Stock)
}
