package purchase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/engine"
)

type memOrders struct {
	orders map[id.ID]*Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[id.ID]*Order)}
}

func (m *memOrders) Create(_ context.Context, o *Order) error {
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("purchase order", orderID.String())
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Update(_ context.Context, o *Order) error {
	stored, ok := m.orders[o.ID]
	if !ok {
		return apperror.NewNotFound("purchase order", o.ID.String())
	}
	lines := stored.Lines
	cp := *o
	cp.Lines = lines
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) ReplaceLines(_ context.Context, orderID id.ID, lines []Line) error {
	o, ok := m.orders[orderID]
	if !ok {
		return apperror.NewNotFound("purchase order", orderID.String())
	}
	o.Lines = lines
	return nil
}

func (m *memOrders) List(_ context.Context, _ ListFilter) ([]*Order, error) {
	var res []*Order
	for _, o := range m.orders {
		res = append(res, o)
	}
	return res, nil
}

type receiveCall struct {
	orderID id.ID
	lines   []engine.ReceiptLine
}

type fakeReceiver struct {
	calls []receiveCall
}

func (f *fakeReceiver) ReceivePurchase(_ context.Context, orderID id.ID, lines []engine.ReceiptLine) error {
	f.calls = append(f.calls, receiveCall{orderID: orderID, lines: lines})
	return nil
}

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqLots struct {
	n int
}

func (s *seqLots) Next(prefix string, _ id.ID, _ time.Time) string {
	s.n++
	return fmt.Sprintf("%s-TEST-%04d", prefix, s.n)
}

func newTestService() (*Service, *memOrders, *fakeReceiver) {
	repo := newMemOrders()
	receiver := &fakeReceiver{}
	svc := NewService(repo, receiver, &seqLots{}, nopTx{}, nil)
	return svc, repo, receiver
}

func draftOrder(qtys ...int64) *Order {
	o := NewOrder("ACME Pharma")
	for _, q := range qtys {
		o.AddLine(id.New(), types.Quantity(q), types.MustMoney("12.50"), "", nil)
	}
	return o
}

func TestCreate_AssignsNumberAndLotCodes(t *testing.T) {
	svc, _, _ := newTestService()

	o, err := svc.Create(context.Background(), draftOrder(10, 5))
	require.NoError(t, err)

	assert.NotEmpty(t, o.Number)
	assert.Equal(t, StatusDraft, o.Status)
	assert.Equal(t, "LOT-TEST-0001", o.Lines[0].LotCode)
	assert.Equal(t, "LOT-TEST-0002", o.Lines[1].LotCode)
	assert.Equal(t, "187.50", o.TotalAmount.StringFixed(2))
}

func TestCreate_KeepsProvidedLotCodes(t *testing.T) {
	svc, _, _ := newTestService()

	o := NewOrder("ACME Pharma")
	o.AddLine(id.New(), 10, types.MustMoney("1.00"), "SUPPLIER-A1", nil)
	o.AddLine(id.New(), 5, types.MustMoney("1.00"), "", nil)

	created, err := svc.Create(context.Background(), o)
	require.NoError(t, err)

	assert.Equal(t, "SUPPLIER-A1", created.Lines[0].LotCode)
	assert.Equal(t, "LOT-TEST-0001", created.Lines[1].LotCode)
}

func TestCreate_RejectsEmptyOrder(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), NewOrder("ACME Pharma"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestFinalize_CreditsStockOnce(t *testing.T) {
	svc, repo, receiver := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, draftOrder(10, 5))
	require.NoError(t, err)

	finalized, err := svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusFinalized, finalized.Status)
	assert.NotNil(t, finalized.FinalizedAt)

	require.Len(t, receiver.calls, 1)
	call := receiver.calls[0]
	assert.Equal(t, o.ID, call.orderID)
	require.Len(t, call.lines, 2)
	assert.Equal(t, types.Quantity(10), call.lines[0].Quantity)
	assert.Equal(t, o.Lines[0].LotCode, call.lines[0].LotCode)

	stored, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinalized, stored.Status)
}

func TestFinalize_RejectsSecondFinalize(t *testing.T) {
	svc, _, receiver := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, draftOrder(10))
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, o.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOrderFinalized, appErr.Code)

	// Stock was credited exactly once.
	assert.Len(t, receiver.calls, 1)
}

func TestFinalize_SkipsDeletedLines(t *testing.T) {
	svc, repo, receiver := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, draftOrder(10, 5))
	require.NoError(t, err)

	now := time.Now().UTC()
	stored := repo.orders[o.ID]
	stored.Lines[1].DeletedAt = &now

	_, err = svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	require.Len(t, receiver.calls, 1)
	assert.Len(t, receiver.calls[0].lines, 1)
}

func TestUpdate_RejectsFinalizedOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, draftOrder(10))
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	o.SupplierName = "Other Supplier"
	_, err = svc.Update(ctx, o)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeOrderFinalized, appErr.Code)
}
