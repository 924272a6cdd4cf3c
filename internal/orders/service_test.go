package orders

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/cart"
	"github.com/odyssey-erp/orderflow/internal/catalog"
	"github.com/odyssey-erp/orderflow/internal/numbering"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

type memoryStore struct {
	products  map[int64]catalog.Product
	lines     map[int64]cart.Line
	counters  map[string]int64
	companies map[int64]Company
	orders    map[int64]Order
	nextOrder int64
	nextItem  int64
	nextLine  int64
	updates   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products:  make(map[int64]catalog.Product),
		lines:     make(map[int64]cart.Line),
		counters:  make(map[string]int64),
		companies: map[int64]Company{1: {ID: 1, Name: "Acme Traders", InvoicePrefix: "ACME"}, 2: {ID: 2, Name: "No Prefix Ltd"}},
		orders:    make(map[int64]Order),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	saved := *m
	saved.products = cloneMap(m.products)
	saved.lines = cloneMap(m.lines)
	saved.counters = cloneMap(m.counters)
	saved.orders = cloneMap(m.orders)
	if err := fn(ctx, m); err != nil {
		*m = saved
		return err
	}
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (m *memoryStore) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	out := []Order{}
	for _, o := range m.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != 0 && o.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryStore) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *memoryStore) TryDecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	p, ok := m.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	m.products[id] = p
	return true, nil
}

func (m *memoryStore) IncrementStock(ctx context.Context, id int64, qty int) error {
	p, ok := m.products[id]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Stock += qty
	m.products[id] = p
	return nil
}

func (m *memoryStore) Snapshot(ctx context.Context, userID int64) ([]cart.Line, error) {
	out := []cart.Line{}
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteLines(ctx context.Context, userID int64, ids []int64) error {
	for _, id := range ids {
		if l, ok := m.lines[id]; ok && l.UserID == userID {
			delete(m.lines, id)
		}
	}
	return nil
}

func (m *memoryStore) LockCounter(ctx context.Context, prefix string) (int64, bool, error) {
	last, ok := m.counters[prefix]
	return last, ok, nil
}

func (m *memoryStore) LastIssued(ctx context.Context, prefix string) (string, bool, error) {
	last := ""
	for _, o := range m.orders {
		if strings.HasPrefix(o.Invoice, prefix) && o.Invoice > last {
			last = o.Invoice
		}
	}
	return last, last != "", nil
}

func (m *memoryStore) SaveCounter(ctx context.Context, prefix string, last int64) error {
	m.counters[prefix] = last
	return nil
}

func (m *memoryStore) GetCompany(ctx context.Context, id int64) (Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return Company{}, ErrCompanyNotFound
	}
	return c, nil
}

func (m *memoryStore) InsertOrder(ctx context.Context, o Order) (int64, error) {
	for _, existing := range m.orders {
		if existing.Invoice == o.Invoice {
			return 0, ErrDuplicateInvoice
		}
	}
	m.nextOrder++
	o.ID = m.nextOrder
	o.Items = nil
	m.orders[o.ID] = o
	return o.ID, nil
}

func (m *memoryStore) InsertItem(ctx context.Context, it Item) (int64, error) {
	o, ok := m.orders[it.OrderID]
	if !ok {
		return 0, ErrOrderNotFound
	}
	m.nextItem++
	it.ID = m.nextItem
	o.Items = append(append([]Item(nil), o.Items...), it)
	m.orders[o.ID] = o
	return it.ID, nil
}

func (m *memoryStore) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	o := m.orders[orderID]
	o.TotalAmount = total
	m.orders[orderID] = o
	return nil
}

func (m *memoryStore) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return m.Get(ctx, id)
}

func (m *memoryStore) UpdateStatus(ctx context.Context, id int64, status Status, updatedAt time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status, o.UpdatedAt = status, updatedAt
	m.orders[id] = o
	m.updates++
	return nil
}

func (m *memoryStore) addProduct(id int64, name string, stock int, price int64) {
	sp := decimal.NewFromInt(price)
	p := catalog.Product{ID: id, Name: name, Type: catalog.ProductTypeSingle, Stock: stock, SellingPrice: &sp, Tax: decimal.NewFromInt(18)}
	catalog.RecomputeExcludePrice(&p)
	m.products[id] = p
}

func (m *memoryStore) addLine(userID, productID int64, qty int, discount int64) {
	m.nextLine++
	m.lines[m.nextLine] = cart.Line{ID: m.nextLine, UserID: userID, ProductID: productID, Quantity: qty, Discount: decimal.NewFromInt(discount)}
}

type countingHooks struct {
	notified []int64
	bumps    int
	created  int
	rejected int
}

func (c *countingHooks) EnqueueOrderCreated(ctx context.Context, orderID int64) error {
	c.notified = append(c.notified, orderID)
	return nil
}

func (c *countingHooks) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func (c *countingHooks) OrderCreated(kind string)  { c.created++ }
func (c *countingHooks) StockRejected(kind string) { c.rejected++ }

var sales = shared.Principal{ID: 7, Designation: shared.DesignationSales}

func validInput() CreateInput {
	return CreateInput{
		CustomerID:     3,
		BillingAddress: "12 Market Road",
		CompanyID:      1,
		State:          "Karnataka",
		Bank:           "HDFC",
		PaymentMethod:  "NEFT",
	}
}

func newService(store *memoryStore, hooks *countingHooks, locker shared.Locker) *Service {
	return NewService(store, Dependencies{Locker: locker, Notifier: hooks, Cache: hooks, Metrics: hooks}, ServiceConfig{})
}

func TestCreateOrderDecrementsStockAndClearsCart(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Product X", 10, 100)
	store.addLine(sales.ID, 1, 3, 0)
	hooks := &countingHooks{}

	order, err := newService(store, hooks, nil).CreateOrder(context.Background(), sales, validInput())
	require.NoError(t, err)
	require.Equal(t, "ACME000001", order.Invoice)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, PaymentUnpaid, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	require.Equal(t, 3, order.Items[0].Quantity)
	require.Equal(t, 7, store.products[1].Stock)
	require.Empty(t, store.lines)
	require.Equal(t, "300", order.TotalAmount.String())
	require.Equal(t, []int64{order.ID}, hooks.notified)
	require.Equal(t, 1, hooks.bumps)
	require.Equal(t, 1, hooks.created)
}

func TestCreateOrderInsufficientStockRollsBackEverything(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Product X", 10, 100)
	store.addProduct(2, "Product Y", 2, 50)
	store.addLine(sales.ID, 1, 1, 0)
	store.addLine(sales.ID, 2, 5, 0)
	hooks := &countingHooks{}

	_, err := newService(store, hooks, nil).CreateOrder(context.Background(), sales, validInput())
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	var stockErr *catalog.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, "Product Y", stockErr.Name)

	require.Equal(t, 2, store.products[2].Stock)
	require.Equal(t, 10, store.products[1].Stock)
	require.Empty(t, store.orders)
	require.Len(t, store.lines, 2)
	require.Empty(t, store.counters, "invoice counter is not consumed")
	require.Equal(t, 1, hooks.rejected)
	require.Empty(t, hooks.notified)
}

func TestCreateOrderItemsMirrorCartLines(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Kettle", 10, 118)
	store.addProduct(2, "Toaster", 10, 236)
	store.addProduct(3, "Mixer", 10, 59)
	store.addLine(sales.ID, 1, 2, 18)
	store.addLine(sales.ID, 2, 1, 0)
	store.addLine(sales.ID, 3, 4, 100)
	lines, _ := store.Snapshot(context.Background(), sales.ID)

	order, err := newService(store, &countingHooks{}, nil).CreateOrder(context.Background(), sales, validInput())
	require.NoError(t, err)
	require.Len(t, order.Items, len(lines))
	for i, line := range lines {
		item := order.Items[i]
		product := store.products[line.ProductID]
		require.Equal(t, line.ProductID, item.ProductID)
		require.Equal(t, line.Quantity, item.Quantity)
		require.True(t, line.Discount.Equal(item.Discount))
		require.True(t, product.Tax.Equal(item.Tax))
		require.True(t, product.ExcludePrice.Equal(item.Rate))
	}
	// (118-18)*2 + 236*1 + max(59-100,0)*4
	require.Equal(t, "436", order.TotalAmount.String())
	require.Equal(t, "84.75", order.Items[0].ExcludePrice().String())
	require.Empty(t, store.lines)
}

func TestInvoiceNumbersStrictlyIncrease(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Kettle", 100, 10)
	svc := newService(store, &countingHooks{}, nil)

	var last int64
	for i := 0; i < 4; i++ {
		store.addLine(sales.ID, 1, 1, 0)
		order, err := svc.CreateOrder(context.Background(), sales, validInput())
		require.NoError(t, err)
		n, ok := numbering.ParseSuffix("ACME", order.Invoice)
		require.True(t, ok)
		require.Greater(t, n, last)
		last = n
	}
	require.Equal(t, 96, store.products[1].Stock)
}

func TestCreateOrderValidatesShippingPair(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Kettle", 10, 10)
	store.addLine(sales.ID, 1, 1, 0)
	mode := "courier"
	input := validInput()
	input.ShippingMode = &mode

	_, err := newService(store, &countingHooks{}, nil).CreateOrder(context.Background(), sales, input)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "cod_amount")
	require.Equal(t, 10, store.products[1].Stock)

	cod := decimal.NewFromInt(250)
	input.CODAmount = &cod
	order, err := newService(store, &countingHooks{}, nil).CreateOrder(context.Background(), sales, input)
	require.NoError(t, err)
	require.Equal(t, "courier", *order.ShippingMode)
}

func TestCreateOrderMissingPrefixAndEmptyCart(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Kettle", 10, 10)
	svc := newService(store, &countingHooks{}, nil)

	_, err := svc.CreateOrder(context.Background(), sales, validInput())
	require.ErrorIs(t, err, shared.ErrValidation, "empty cart")

	store.addLine(sales.ID, 1, 1, 0)
	input := validInput()
	input.CompanyID = 2
	_, err = svc.CreateOrder(context.Background(), sales, input)
	require.ErrorIs(t, err, numbering.ErrMissingPrefix)
	require.Equal(t, 10, store.products[1].Stock)
	require.Len(t, store.lines, 1)

	input.CompanyID = 99
	_, err = svc.CreateOrder(context.Background(), sales, input)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateOrderRejectsConcurrentCheckout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := shared.NewRedisLocker(client)

	store := newMemoryStore()
	store.addProduct(1, "Kettle", 10, 10)
	store.addLine(sales.ID, 1, 1, 0)
	svc := newService(store, &countingHooks{}, locker)

	release, err := locker.Obtain(context.Background(), shared.CheckoutLockKey("order", sales.ID), time.Minute)
	require.NoError(t, err)
	_, err = svc.CreateOrder(context.Background(), sales, validInput())
	require.ErrorIs(t, err, ErrCheckoutInProgress)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	require.NoError(t, release(context.Background()))
	_, err = svc.CreateOrder(context.Background(), sales, validInput())
	require.NoError(t, err)
	require.False(t, mr.Exists(shared.CheckoutLockKey("order", sales.ID)), "lock released after checkout")
}

func TestUpdateOrderStatus(t *testing.T) {
	store := newMemoryStore()
	store.addProduct(1, "Kettle", 10, 10)
	store.addLine(sales.ID, 1, 4, 0)
	svc := newService(store, &countingHooks{}, nil)
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, sales, validInput())
	require.NoError(t, err)

	svc.now = func() time.Time { return order.UpdatedAt.Add(time.Hour) }
	same, err := svc.UpdateOrderStatus(ctx, sales, order.ID, StatusPending)
	require.NoError(t, err)
	require.Equal(t, order.UpdatedAt, same.UpdatedAt)
	require.Zero(t, store.updates)

	_, err = svc.UpdateOrderStatus(ctx, sales, order.ID, StatusCompleted)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.UpdateOrderStatus(ctx, sales, order.ID, Status("Lost"))
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateOrderStatus(ctx, sales, 404, StatusApproved)
	require.ErrorIs(t, err, shared.ErrNotFound)

	approved, err := svc.UpdateOrderStatus(ctx, sales, order.ID, StatusApproved)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.True(t, approved.UpdatedAt.After(order.UpdatedAt))
	require.Equal(t, 6, store.products[1].Stock)

	_, err = svc.UpdateOrderStatus(ctx, sales, order.ID, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, 10, store.products[1].Stock, "cancellation restocks items")

	_, err = svc.UpdateOrderStatus(ctx, sales, order.ID, StatusApproved)
	require.ErrorIs(t, err, shared.ErrInvalidTransition, "cancelled is terminal")
}
