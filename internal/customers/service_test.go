package customers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

type memoryRepo struct {
	customers []Customer
}

func (m *memoryRepo) Insert(ctx context.Context, c Customer) (int64, error) {
	for _, existing := range m.customers {
		switch {
		case existing.Email == c.Email:
			return 0, &DuplicateError{Field: "email"}
		case existing.Phone == c.Phone:
			return 0, &DuplicateError{Field: "phone"}
		case c.GSTNumber != "" && existing.GSTNumber == c.GSTNumber:
			return 0, &DuplicateError{Field: "gst_number"}
		}
	}
	c.ID = int64(len(m.customers) + 1)
	m.customers = append(m.customers, c)
	return c.ID, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 || id > int64(len(m.customers)) {
		return Customer{}, ErrNotFound
	}
	return m.customers[id-1], nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	return m.customers, nil
}

var sales = shared.Principal{ID: 3, Designation: shared.DesignationSales}

func input() CreateInput {
	return CreateInput{
		Name:           "Sharma Stores",
		Email:          "Accounts@SharmaStores.in",
		Phone:          "098765 43210",
		GSTNumber:      "29abcde1234f1z5",
		BillingAddress: "MG Road, Bengaluru",
		State:          "Karnataka",
	}
}

func TestCreateNormalizesFields(t *testing.T) {
	svc := NewService(&memoryRepo{}, "IN", nil)
	c, err := svc.Create(context.Background(), sales, input())
	require.NoError(t, err)
	require.Equal(t, "+919876543210", c.Phone)
	require.Equal(t, "accounts@sharmastores.in", c.Email)
	require.Equal(t, "29ABCDE1234F1Z5", c.GSTNumber)
	require.Equal(t, sales.ID, c.CreatedBy)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := NewService(&memoryRepo{}, "IN", nil)
	ctx := context.Background()
	var verr *shared.ValidationError

	in := input()
	in.Phone = "12"
	_, err := svc.Create(ctx, sales, in)
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "phone")

	in = input()
	in.GSTNumber = "29ABCDE1234F1X5"
	_, err = svc.Create(ctx, sales, in)
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "gst_number")

	in = input()
	in.Email = "not-an-email"
	_, err = svc.Create(ctx, sales, in)
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
}

func TestCreateDuplicates(t *testing.T) {
	svc := NewService(&memoryRepo{}, "IN", nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, sales, input())
	require.NoError(t, err)

	in := input()
	in.Email = "other@sharmastores.in"
	in.Phone = "+91 98765 43210"
	_, err = svc.Create(ctx, sales, in)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, "phone", dup.Field)
}

func TestNormalizePhone(t *testing.T) {
	e164, err := NormalizePhone("+1 650-253-0000", "IN")
	require.NoError(t, err)
	require.Equal(t, "+16502530000", e164)
}
