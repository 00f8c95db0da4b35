package drug

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

type memDrugs struct {
	drugs map[id.ID]*Drug
}

func newMemDrugs() *memDrugs {
	return &memDrugs{drugs: make(map[id.ID]*Drug)}
}

func (m *memDrugs) Create(_ context.Context, d *Drug) error {
	cp := *d
	m.drugs[d.ID] = &cp
	return nil
}

func (m *memDrugs) GetByID(_ context.Context, drugID id.ID) (*Drug, error) {
	d, ok := m.drugs[drugID]
	if !ok {
		return nil, apperror.NewNotFound("drug", drugID.String())
	}
	cp := *d
	return &cp, nil
}

func (m *memDrugs) GetByName(_ context.Context, name string) (*Drug, error) {
	for _, d := range m.drugs {
		if strings.EqualFold(d.Name, name) && !d.IsDeleted() {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("drug", name)
}

func (m *memDrugs) Update(_ context.Context, d *Drug) error {
	if _, ok := m.drugs[d.ID]; !ok {
		return apperror.NewNotFound("drug", d.ID.String())
	}
	cp := *d
	m.drugs[d.ID] = &cp
	return nil
}

func (m *memDrugs) SoftDelete(_ context.Context, drugID id.ID) error {
	d, ok := m.drugs[drugID]
	if !ok {
		return apperror.NewNotFound("drug", drugID.String())
	}
	d.MarkDeleted()
	return nil
}

func (m *memDrugs) List(_ context.Context, _ ListFilter) ([]*Drug, error) {
	var res []*Drug
	for _, d := range m.drugs {
		res = append(res, d)
	}
	return res, nil
}

type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *memDrugs) {
	repo := newMemDrugs()
	return NewService(repo, nopTx{}, nil), repo
}

func TestCreate_StoresDrug(t *testing.T) {
	svc, repo := newTestService()

	d := New("Amoxicillin 500mg", UnitCapsule, types.MustMoney("0.45"))
	require.NoError(t, svc.Create(context.Background(), d))

	stored, ok := repo.drugs[d.ID]
	require.True(t, ok)
	assert.Equal(t, "Amoxicillin 500mg", stored.Name)
	assert.True(t, stored.Active)
}

func TestCreate_RejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, New("Paracetamol 500mg", UnitTablet, types.MustMoney("0.08"))))

	err := svc.Create(ctx, New("paracetamol 500mg", UnitTablet, types.MustMoney("0.08")))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestCreate_RejectsMissingName(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Create(context.Background(), New("  ", UnitTablet, types.MustMoney("1.00")))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestUpdate_AllowsSameDrugKeepingName(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	d := New("Ibuprofen 400mg", UnitTablet, types.MustMoney("0.12"))
	require.NoError(t, svc.Create(ctx, d))

	d.MinStock = 300
	require.NoError(t, svc.Update(ctx, d))

	assert.Equal(t, types.Quantity(300), repo.drugs[d.ID].MinStock)
}

func TestUpdate_RejectsNameTakenByOther(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, New("Omeprazole 20mg", UnitCapsule, types.MustMoney("0.30"))))
	other := New("Omeprazole 40mg", UnitCapsule, types.MustMoney("0.50"))
	require.NoError(t, svc.Create(ctx, other))

	other.Name = "Omeprazole 20mg"
	err := svc.Update(ctx, other)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestDelete_SoftDeletesAndFreesName(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	d := New("Salbutamol inhaler", UnitPiece, types.MustMoney("6.50"))
	require.NoError(t, svc.Create(ctx, d))
	require.NoError(t, svc.Delete(ctx, d.ID))

	assert.True(t, repo.drugs[d.ID].IsDeleted())

	// A deleted drug no longer blocks its name.
	require.NoError(t, svc.Create(ctx, New("Salbutamol inhaler", UnitPiece, types.MustMoney("6.50"))))
}

func TestDelete_UnknownDrug(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Delete(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
