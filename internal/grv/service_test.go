package grv

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

type memoryRepo struct {
	orders  map[int64]bool
	returns map[int64]Return
	saves   int
	// afterGet runs once Get has returned its snapshot.
	afterGet func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[int64]bool{1: true}, returns: make(map[int64]Return)}
}

func (m *memoryRepo) OrderExists(ctx context.Context, orderID int64) (bool, error) {
	return m.orders[orderID], nil
}

func (m *memoryRepo) Insert(ctx context.Context, r Return) (int64, error) {
	r.ID = int64(len(m.returns) + 1)
	m.returns[r.ID] = r
	return r.ID, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Return, error) {
	r, ok := m.returns[id]
	if !ok {
		return Return{}, ErrNotFound
	}
	if m.afterGet != nil {
		m.afterGet()
	}
	return r, nil
}

func (m *memoryRepo) Decide(ctx context.Context, r Return, from Status) error {
	current, ok := m.returns[r.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != from {
		return ErrAlreadyDecided
	}
	m.returns[r.ID] = r
	m.saves++
	return nil
}

func (m *memoryRepo) ByOrder(ctx context.Context, orderID int64) ([]Return, error) {
	var out []Return
	for id := int64(1); id <= int64(len(m.returns)); id++ {
		if r := m.returns[id]; r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memoryApprovals struct{ logs []shared.ApprovalLog }

func (a *memoryApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var clerk = shared.Principal{ID: 5, Designation: shared.DesignationSales}

func voucher() CreateInput {
	return CreateInput{OrderID: 1, ProductDescription: "Kettle 1.5L", Reason: "dented", Price: decimal.NewFromInt(590), Quantity: 1, Remark: RemarkRefund}
}

func TestCreate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	r, err := svc.Create(ctx, clerk, voucher())
	require.NoError(t, err)
	require.Equal(t, StatusPending, r.Status)

	in := voucher()
	in.OrderID = 9
	_, err = svc.Create(ctx, clerk, in)
	require.ErrorIs(t, err, shared.ErrNotFound)

	in = voucher()
	in.Remark = "exchange"
	_, err = svc.Create(ctx, clerk, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	list, err := svc.ByOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUpdateStatusSameStatusDoesNotSave(t *testing.T) {
	repo := newMemoryRepo()
	approvals := &memoryApprovals{}
	svc := NewService(repo, approvals, nil)
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }
	ctx := context.Background()
	r, err := svc.Create(ctx, clerk, voucher())
	require.NoError(t, err)

	decided := created.Add(2 * time.Hour)
	svc.now = func() time.Time { return decided }

	same, err := svc.UpdateStatus(ctx, clerk, r.ID, StatusPending, "")
	require.NoError(t, err)
	require.Equal(t, created, same.UpdatedAt)
	require.Zero(t, repo.saves)

	approved, err := svc.UpdateStatus(ctx, clerk, r.ID, StatusApproved, "ok")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, decided, approved.UpdatedAt)
	require.Equal(t, 1, repo.saves)
	require.Len(t, approvals.logs, 1)
	require.Equal(t, shared.ApprovalApprove, approvals.logs[0].Action)

	svc.now = func() time.Time { return decided.Add(time.Hour) }
	again, err := svc.UpdateStatus(ctx, clerk, r.ID, StatusApproved, "")
	require.NoError(t, err)
	require.Equal(t, decided, again.UpdatedAt, "second identical update leaves updated_at unchanged")
	require.Equal(t, 1, repo.saves)
}

func TestUpdateStatusDecidedIsFinal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, clerk, voucher())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, clerk, r.ID, StatusRejected, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, clerk, r.ID, StatusApproved, "")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, clerk, r.ID, StatusPending, "")
	require.ErrorIs(t, err, ErrAlreadyDecided)

	_, err = svc.UpdateStatus(ctx, clerk, r.ID, Status("lost"), "")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.UpdateStatus(ctx, clerk, 77, StatusApproved, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateStatusLosesToConcurrentDecision(t *testing.T) {
	repo := newMemoryRepo()
	approvals := &memoryApprovals{}
	svc := NewService(repo, approvals, nil)
	ctx := context.Background()
	r, err := svc.Create(ctx, clerk, voucher())
	require.NoError(t, err)

	// Another clerk rejects the voucher between our read and our write.
	repo.afterGet = func() {
		other := repo.returns[r.ID]
		other.Status = StatusRejected
		repo.returns[r.ID] = other
		repo.afterGet = nil
	}

	_, err = svc.UpdateStatus(ctx, clerk, r.ID, StatusApproved, "ok")
	require.ErrorIs(t, err, ErrAlreadyDecided)
	require.Empty(t, approvals.logs)
	require.Zero(t, repo.saves)

	stored, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, stored.Status)
}
