package reports

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/orderflow/internal/shared"
	"github.com/odyssey-erp/orderflow/internal/warehouse"
)

type countingRepo struct {
	mu    sync.Mutex
	calls map[string]int
	sales []StatusTotal
}

func (c *countingRepo) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[name]++
}

func (c *countingRepo) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingRepo) SalesByStatus(ctx context.Context, from, to time.Time) ([]StatusTotal, error) {
	c.hit("sales")
	return c.sales, nil
}

func (c *countingRepo) CollectionsByPurpose(ctx context.Context, from, to time.Time) ([]PurposeTotal, error) {
	c.hit("collections")
	return []PurposeTotal{
		{Purpose: "advance", Count: 1, Amount: decimal.NewFromInt(100)},
		{Purpose: "invoice", Count: 2, Amount: decimal.NewFromInt(200)},
	}, nil
}

func (c *countingRepo) StockByGroup(ctx context.Context) ([]GroupStock, error) {
	c.hit("stock")
	return []GroupStock{{GroupID: "G1", Products: 2, Stock: 15}}, nil
}

type fixedShipments struct{ days []time.Time }

func (f *fixedShipments) DailySummary(ctx context.Context, day time.Time) (warehouse.DailySummary, error) {
	f.days = append(f.days, day)
	return warehouse.DailySummary{Date: day.Format(time.DateOnly), Boxes: 3}, nil
}

func newTestService(t *testing.T) (*Service, *countingRepo, *fixedShipments) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &countingRepo{sales: []StatusTotal{
		{Status: "Approved", Count: 2, Amount: decimal.RequireFromString("250.50")},
		{Status: "Pending", Count: 1, Amount: decimal.NewFromInt(100)},
	}}
	ships := &fixedShipments{}
	return NewService(repo, ships, NewCache(client, time.Minute), nil), repo, ships
}

func march() Range {
	return Range{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
}

func TestSalesSummaryCachedUntilBump(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.SalesSummary(ctx, march())
	require.NoError(t, err)
	require.Equal(t, 3, first.Orders)
	require.True(t, first.Amount.Equal(decimal.RequireFromString("350.50")))
	require.Equal(t, "2024-03-01", first.From)

	second, err := svc.SalesSummary(ctx, march())
	require.NoError(t, err)
	require.Equal(t, first.Orders, second.Orders)
	require.Equal(t, 1, repo.count("sales"))

	require.NoError(t, svc.Bump(ctx))
	_, err = svc.SalesSummary(ctx, march())
	require.NoError(t, err)
	require.Equal(t, 2, repo.count("sales"))
}

func TestCollectionsAndStock(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	coll, err := svc.Collections(ctx, march())
	require.NoError(t, err)
	require.Equal(t, 3, coll.Receipts)
	require.True(t, coll.Amount.Equal(decimal.NewFromInt(300)))

	stock, err := svc.StockByGroup(ctx)
	require.NoError(t, err)
	require.Equal(t, []GroupStock{{GroupID: "G1", Products: 2, Stock: 15}}, stock)
}

func TestInvertedRangeRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	r := march()
	r.From, r.To = r.To, r.From
	_, err := svc.SalesSummary(context.Background(), r)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Zero(t, repo.count("sales"))
}

func TestShipmentDayDelegatesToWarehouse(t *testing.T) {
	svc, _, ships := newTestService(t)
	day := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)
	out, err := svc.ShipmentDay(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, "2024-03-05", out.Date)
	require.Equal(t, 3, out.Boxes)
	require.Len(t, ships.days, 1)
	require.Equal(t, 0, ships.days[0].Hour())
}

func TestConcurrentCallsShareOneLoad(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	lens := make([]int, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.StockByGroup(ctx)
			errs[i], lens[i] = err, len(out)
		}(i)
	}
	wg.Wait()
	for i := range errs {
		require.NoError(t, errs[i])
		require.Equal(t, 1, lens[i])
	}
	require.LessOrEqual(t, repo.count("stock"), 8)
	require.GreaterOrEqual(t, repo.count("stock"), 1)
}

func TestWarmPopulatesCache(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx, time.Date(2024, 3, 20, 6, 0, 0, 0, time.UTC)))
	_, err := svc.SalesSummary(ctx, Range{From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Equal(t, 1, repo.count("sales"))
	require.Equal(t, 1, repo.count("stock"))
}

func TestNilCacheLoadsDirectly(t *testing.T) {
	repo := &countingRepo{}
	svc := NewService(repo, &fixedShipments{}, nil, nil)
	_, err := svc.StockByGroup(context.Background())
	require.NoError(t, err)
	_, err = svc.StockByGroup(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.count("stock"))
}

func TestWriteSalesWorkbook(t *testing.T) {
	svc, _, _ := newTestService(t)
	summary, err := svc.SalesSummary(context.Background(), march())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSalesWorkbook(&buf, summary))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Sales")
	require.NoError(t, err)
	header := -1
	for i, row := range rows {
		if len(row) > 0 && row[0] == "Status" {
			header = i
		}
	}
	require.GreaterOrEqual(t, header, 0)
	require.Equal(t, []string{"Status", "Orders", "Amount"}, rows[header])
	require.Equal(t, "Approved", rows[header+1][0])
	require.Equal(t, []string{"Total", "3", "350.5"}, rows[len(rows)-1])
}
