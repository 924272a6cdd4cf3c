package payments

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/orders"
	"github.com/odyssey-erp/orderflow/internal/shared"
)

type memoryRepo struct {
	orders   map[int64]orders.Order
	receipts []Receipt
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[int64]orders.Order{
		1: {ID: 1, CustomerID: 9, Invoice: "ACME000001", Status: orders.StatusApproved, PaymentStatus: orders.PaymentUnpaid, TotalAmount: decimal.NewFromInt(1000)},
		2: {ID: 2, CustomerID: 9, Invoice: "ACME000002", Status: orders.StatusPending, PaymentStatus: orders.PaymentUnpaid, TotalAmount: decimal.NewFromInt(250)},
		3: {ID: 3, CustomerID: 5, Invoice: "ACME000003", Status: orders.StatusPending, PaymentStatus: orders.PaymentUnpaid, TotalAmount: decimal.NewFromInt(80)},
	}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	savedOrders := make(map[int64]orders.Order, len(m.orders))
	for k, v := range m.orders {
		savedOrders[k] = v
	}
	savedReceipts := append([]Receipt(nil), m.receipts...)
	savedSeq := m.seq
	if err := fn(ctx, m); err != nil {
		m.orders, m.receipts, m.seq = savedOrders, savedReceipts, savedSeq
		return err
	}
	return nil
}

func (m *memoryRepo) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (m *memoryRepo) GetOrderForUpdate(ctx context.Context, id int64) (orders.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memoryRepo) ReceiptsByOrder(ctx context.Context, orderID int64) ([]Receipt, error) {
	var out []Receipt
	for _, r := range m.receipts {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) OrdersByCustomer(ctx context.Context, customerID int64) ([]orders.Order, error) {
	var out []orders.Order
	for id := int64(1); id <= int64(len(m.orders)); id++ {
		if o := m.orders[id]; o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryRepo) ReceiptsByCustomer(ctx context.Context, customerID int64) ([]Receipt, error) {
	var out []Receipt
	for _, r := range m.receipts {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) NextReceiptSequence(ctx context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) InsertReceipt(ctx context.Context, r Receipt) (int64, error) {
	r.ID = int64(len(m.receipts) + 1)
	m.receipts = append(m.receipts, r)
	return r.ID, nil
}

func (m *memoryRepo) SetPaymentStatus(ctx context.Context, orderID int64, status orders.PaymentStatus) error {
	o := m.orders[orderID]
	o.PaymentStatus = status
	m.orders[orderID] = o
	return nil
}

type memoryIdempotency struct {
	keys map[string]struct{}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if _, ok := m.keys[module+"/"+key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+"/"+key] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key, module string) error {
	delete(m.keys, module+"/"+key)
	return nil
}

type receiptCounter struct{ n int }

func (c *receiptCounter) ReceiptRecorded() { c.n++ }

var accounts = shared.Principal{ID: 2, Designation: shared.DesignationAccounts}

func payment(orderID int64, amount int64) RecordInput {
	return RecordInput{
		OrderID:       orderID,
		Amount:        decimal.NewFromInt(amount),
		Bank:          "HDFC",
		TransactionID: "UTR123",
		ReceivedAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Purpose:       PurposeInvoice,
	}
}

func TestReceiptCodesFollowSequence(t *testing.T) {
	repo := newMemoryRepo()
	repo.seq = 3
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.RecordPayment(ctx, accounts, payment(1, 100))
	require.NoError(t, err)
	second, err := svc.RecordPayment(ctx, accounts, payment(1, 100))
	require.NoError(t, err)

	require.Equal(t, "REC-0004E", first.Receipt.Code)
	require.Equal(t, "REC-0005F", second.Receipt.Code)
	require.Equal(t, int64(9), first.Receipt.CustomerID)
	require.Equal(t, accounts.ID, first.Receipt.CreatedBy)
}

func TestRecordPaymentUpdatesPaymentStatus(t *testing.T) {
	repo := newMemoryRepo()
	metrics := &receiptCounter{}
	svc := NewService(repo, nil, nil, nil, metrics, nil)
	ctx := context.Background()

	out, err := svc.RecordPayment(ctx, accounts, payment(1, 400))
	require.NoError(t, err)
	require.Equal(t, orders.PaymentPartial, out.Balance.PaymentStatus)
	require.Equal(t, "600", out.Balance.Balance.String())
	require.Equal(t, orders.PaymentPartial, repo.orders[1].PaymentStatus)

	out, err = svc.RecordPayment(ctx, accounts, payment(1, 600))
	require.NoError(t, err)
	require.True(t, out.Balance.Balance.IsZero())
	require.Equal(t, orders.PaymentPaid, repo.orders[1].PaymentStatus)
	require.Equal(t, 2, metrics.n)

	balance, err := svc.OrderBalance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "1000", balance.Received.String())
}

func TestRecordPaymentValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, accounts, payment(1, 0))
	require.ErrorIs(t, err, shared.ErrValidation)

	in := payment(1, 10)
	in.Purpose = "gift"
	_, err = svc.RecordPayment(ctx, accounts, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(ctx, accounts, payment(42, 10))
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.receipts)
	require.Zero(t, repo.seq, "failed payments do not consume receipt numbers")
}

func TestRecordPaymentRejectsReplay(t *testing.T) {
	repo := newMemoryRepo()
	idem := &memoryIdempotency{keys: map[string]struct{}{}}
	svc := NewService(repo, idem, nil, nil, nil, nil)
	ctx := context.Background()

	in := payment(2, 50)
	in.IdempotencyKey = "abc"
	_, err := svc.RecordPayment(ctx, accounts, in)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, accounts, in)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.Len(t, repo.receipts, 1)

	missing := payment(99, 50)
	missing.IdempotencyKey = "retry-me"
	_, err = svc.RecordPayment(ctx, accounts, missing)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NotContains(t, idem.keys, "payments/retry-me", "failed attempts release their key")
}

func TestLedgerNestsReceiptsPerOrder(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.RecordPayment(ctx, accounts, payment(1, 300))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, accounts, payment(3, 80))
	require.NoError(t, err)

	ledger, err := svc.Ledger(ctx, 9)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	require.Len(t, ledger[0].Receipts, 1)
	require.Equal(t, "700", ledger[0].Balance.Balance.String())
	require.Empty(t, ledger[1].Receipts)
	require.Equal(t, "250", ledger[1].Balance.Balance.String())
}

func TestBalanceOf(t *testing.T) {
	order := orders.Order{ID: 1, TotalAmount: decimal.RequireFromString("99.50")}
	b := BalanceOf(order, []Receipt{{Amount: decimal.RequireFromString("40.25")}, {Amount: decimal.RequireFromString("9.25")}})
	require.Equal(t, "50", b.Balance.String())
	require.Equal(t, orders.PaymentPartial, b.PaymentStatus)
}
