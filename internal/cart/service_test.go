package cart

import (
	"context"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

type memoryRepo struct {
	lines  map[int64]Line
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{lines: make(map[int64]Line)}
}

func (r *memoryRepo) Insert(ctx context.Context, line Line) (int64, error) {
	for _, existing := range r.lines {
		if existing.UserID == line.UserID && existing.ProductID == line.ProductID {
			return 0, ErrDuplicateLine
		}
	}
	r.nextID++
	line.ID = r.nextID
	r.lines[line.ID] = line
	return line.ID, nil
}

func (r *memoryRepo) List(ctx context.Context, userID int64) ([]Line, error) {
	out := []Line{}
	for _, l := range r.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) Delete(ctx context.Context, userID, lineID int64) error {
	l, ok := r.lines[lineID]
	if !ok || l.UserID != userID {
		return ErrLineNotFound
	}
	delete(r.lines, lineID)
	return nil
}

func (r *memoryRepo) Snapshot(ctx context.Context, userID int64) ([]Line, error) {
	return r.List(ctx, userID)
}

func (r *memoryRepo) DeleteLines(ctx context.Context, userID int64, ids []int64) error {
	for _, id := range ids {
		if l, ok := r.lines[id]; ok && l.UserID == userID {
			delete(r.lines, id)
		}
	}
	return nil
}

type fakeCatalog struct {
	products map[int64]catalog.Product
	updates  int
}

func (f *fakeCatalog) Get(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) UpdatePrice(ctx context.Context, actorID, id int64, sellingPrice decimal.Decimal) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	p.SellingPrice = &sellingPrice
	catalog.RecomputeExcludePrice(&p)
	f.products[id] = p
	f.updates++
	return p, nil
}

func newFixture() (*Service, *memoryRepo, *fakeCatalog) {
	price := decimal.NewFromInt(118)
	cat := &fakeCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Kettle", Stock: 10, SellingPrice: &price, Tax: decimal.NewFromInt(18)},
		2: {ID: 2, Name: "Toaster", Stock: 4, SellingPrice: &price, Tax: decimal.NewFromInt(18)},
	}}
	repo := newMemoryRepo()
	return NewService(repo, cat, nil), repo, cat
}

func TestAddLineRejectsDuplicateProduct(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	line, err := svc.AddLine(ctx, 7, LineInput{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, "Kettle", line.ProductName)

	_, err = svc.AddLine(ctx, 7, LineInput{ProductID: 1, Quantity: 5})
	require.ErrorIs(t, err, ErrDuplicateLine)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	lines, err := svc.Lines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 2, lines[0].Quantity, "duplicates are never merged")

	_, err = svc.AddLine(ctx, 8, LineInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err, "other users may hold the same product")
}

func TestAddLineValidation(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.AddLine(ctx, 7, LineInput{ProductID: 1, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddLine(ctx, 7, LineInput{ProductID: 99, Quantity: 1})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "product_id")

	_, err = svc.AddLine(ctx, 7, LineInput{ProductID: 1, Quantity: 1, Discount: decimal.NewFromInt(-1)})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "discount")
}

func TestRemoveLineScopedToOwner(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()
	line, err := svc.AddLine(ctx, 7, LineInput{ProductID: 2, Quantity: 1})
	require.NoError(t, err)

	require.ErrorIs(t, svc.RemoveLine(ctx, 8, line.ID), ErrLineNotFound)
	require.NoError(t, svc.RemoveLine(ctx, 7, line.ID))
	lines, err := svc.Lines(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestDeleteLinesKeepsLinesOutsideSnapshot(t *testing.T) {
	svc, repo, _ := newFixture()
	ctx := context.Background()
	_, err := svc.AddLine(ctx, 7, LineInput{ProductID: 1, Quantity: 1})
	require.NoError(t, err)

	var store TxStore = repo
	snapshot, err := store.Snapshot(ctx, 7)
	require.NoError(t, err)

	late, err := svc.AddLine(ctx, 7, LineInput{ProductID: 2, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, store.DeleteLines(ctx, 7, LineIDs(snapshot)))
	remaining, err := svc.Lines(ctx, 7)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, late.ID, remaining[0].ID)
}

func TestUpdatePricesRequiresAccountsOrAdmin(t *testing.T) {
	svc, _, cat := newFixture()
	ctx := context.Background()
	changes := []PriceChange{{ProductID: 1, SellingPrice: decimal.NewFromInt(236)}}

	_, err := svc.UpdatePrices(ctx, shared.Principal{ID: 3, Designation: shared.DesignationSales}, changes)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Zero(t, cat.updates)

	updated, err := svc.UpdatePrices(ctx, shared.Principal{ID: 4, Designation: shared.DesignationAccounts}, changes)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.Equal(t, "200", updated[0].ExcludePrice.String())
	require.Equal(t, "236", cat.products[1].SellingPrice.String())
}

func TestUpdatePricesChecksEveryProductFirst(t *testing.T) {
	svc, _, cat := newFixture()
	admin := shared.Principal{ID: 1, Designation: shared.DesignationAdmin}
	_, err := svc.UpdatePrices(context.Background(), admin, []PriceChange{
		{ProductID: 1, SellingPrice: decimal.NewFromInt(10)},
		{ProductID: 42, SellingPrice: decimal.NewFromInt(10)},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Zero(t, cat.updates)

	_, err = svc.UpdatePrices(context.Background(), admin, []PriceChange{{ProductID: 1, SellingPrice: decimal.NewFromInt(-5)}})
	require.ErrorIs(t, err, shared.ErrValidation)
}
