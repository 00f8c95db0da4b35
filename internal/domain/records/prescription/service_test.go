package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

type memLines struct {
	lines map[id.ID]*Line
}

func newMemLines() *memLines {
	return &memLines{lines: make(map[id.ID]*Line)}
}

func (m *memLines) Create(_ context.Context, l *Line) error {
	cp := *l
	m.lines[l.ID] = &cp
	return nil
}

func (m *memLines) GetByID(_ context.Context, lineID id.ID) (*Line, error) {
	l, ok := m.lines[lineID]
	if !ok {
		return nil, apperror.NewNotFound("prescription line", lineID.String())
	}
	cp := *l
	return &cp, nil
}

func (m *memLines) Update(_ context.Context, l *Line) error {
	if _, ok := m.lines[l.ID]; !ok {
		return apperror.NewNotFound("prescription line", l.ID.String())
	}
	cp := *l
	m.lines[l.ID] = &cp
	return nil
}

func (m *memLines) SoftDelete(_ context.Context, lineID id.ID) error {
	l, ok := m.lines[lineID]
	if !ok {
		return apperror.NewNotFound("prescription line", lineID.String())
	}
	now := time.Now().UTC()
	l.DeletedAt = &now
	return nil
}

func (m *memLines) List(_ context.Context, _ ListFilter) ([]*Line, error) {
	var res []*Line
	for _, l := range m.lines {
		res = append(res, l)
	}
	return res, nil
}

type dispenseCall struct {
	op       string
	recordID id.ID
	drugID   id.ID
	oldQty   types.Quantity
	newQty   types.Quantity
}

type fakeDispenser struct {
	calls []dispenseCall
}

func (f *fakeDispenser) ConsumePrescription(_ context.Context, recordID, drugID id.ID, qty types.Quantity) error {
	f.calls = append(f.calls, dispenseCall{op: "consume", recordID: recordID, drugID: drugID, newQty: qty})
	return nil
}

func (f *fakeDispenser) AdjustPrescription(_ context.Context, recordID, drugID id.ID, oldQty, newQty types.Quantity) error {
	f.calls = append(f.calls, dispenseCall{op: "adjust", recordID: recordID, drugID: drugID, oldQty: oldQty, newQty: newQty})
	return nil
}

func (f *fakeDispenser) RevertPrescription(_ context.Context, recordID, drugID id.ID, qty types.Quantity) error {
	f.calls = append(f.calls, dispenseCall{op: "revert", recordID: recordID, drugID: drugID, newQty: qty})
	return nil
}

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *memLines, *fakeDispenser) {
	repo := newMemLines()
	dispenser := &fakeDispenser{}
	svc := NewService(repo, dispenser, nil, nopTx{}, nil)
	return svc, repo, dispenser
}

func TestCreate_DispensesQuantity(t *testing.T) {
	svc, repo, dispenser := newTestService()

	recordID := id.New()
	drugID := id.New()

	l, err := svc.Create(context.Background(), New(recordID, drugID, 12, "1 tablet twice daily"))
	require.NoError(t, err)

	require.Len(t, dispenser.calls, 1)
	call := dispenser.calls[0]
	assert.Equal(t, "consume", call.op)
	assert.Equal(t, recordID, call.recordID)
	assert.Equal(t, drugID, call.drugID)
	assert.Equal(t, types.Quantity(12), call.newQty)

	stored, ok := repo.lines[l.ID]
	require.True(t, ok)
	assert.Equal(t, types.Quantity(12), stored.Quantity)
}

func TestCreate_RejectsNonPositiveQuantity(t *testing.T) {
	svc, repo, dispenser := newTestService()

	_, err := svc.Create(context.Background(), New(id.New(), id.New(), 0, ""))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	assert.Empty(t, repo.lines)
	assert.Empty(t, dispenser.calls)
}

func TestUpdateQuantity_AppliesDelta(t *testing.T) {
	svc, repo, dispenser := newTestService()
	ctx := context.Background()

	l, err := svc.Create(ctx, New(id.New(), id.New(), 10, ""))
	require.NoError(t, err)

	updated, err := svc.UpdateQuantity(ctx, l.ID, 15, "dose increased")
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(15), updated.Quantity)
	assert.Equal(t, "dose increased", updated.Note)

	require.Len(t, dispenser.calls, 2)
	call := dispenser.calls[1]
	assert.Equal(t, "adjust", call.op)
	assert.Equal(t, types.Quantity(10), call.oldQty)
	assert.Equal(t, types.Quantity(15), call.newQty)

	assert.Equal(t, types.Quantity(15), repo.lines[l.ID].Quantity)
}

func TestUpdateQuantity_RejectsNonPositive(t *testing.T) {
	svc, _, dispenser := newTestService()
	ctx := context.Background()

	l, err := svc.Create(ctx, New(id.New(), id.New(), 10, ""))
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, l.ID, 0, "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	// Only the original consume call.
	assert.Len(t, dispenser.calls, 1)
}

func TestUpdateQuantity_RejectsDeletedLine(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	l, err := svc.Create(ctx, New(id.New(), id.New(), 10, ""))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, l.ID))

	_, err = svc.UpdateQuantity(ctx, l.ID, 5, "")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_RevertsDispensedQuantity(t *testing.T) {
	svc, repo, dispenser := newTestService()
	ctx := context.Background()

	recordID := id.New()
	drugID := id.New()
	l, err := svc.Create(ctx, New(recordID, drugID, 7, ""))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, l.ID))

	require.Len(t, dispenser.calls, 2)
	call := dispenser.calls[1]
	assert.Equal(t, "revert", call.op)
	assert.Equal(t, recordID, call.recordID)
	assert.Equal(t, drugID, call.drugID)
	assert.Equal(t, types.Quantity(7), call.newQty)

	assert.True(t, repo.lines[l.ID].IsDeleted())
}

func TestDelete_SecondDeleteIsNoOp(t *testing.T) {
	svc, _, dispenser := newTestService()
	ctx := context.Background()

	l, err := svc.Create(ctx, New(id.New(), id.New(), 7, ""))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, l.ID))
	require.NoError(t, svc.Delete(ctx, l.ID))

	// Stock was returned exactly once.
	reverts := 0
	for _, c := range dispenser.calls {
		if c.op == "revert" {
			reverts++
		}
	}
	assert.Equal(t, 1, reverts)
}

func TestDelete_UnknownLine(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Delete(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
