package engine

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
	"clinika/internal/domain/inventory/batch"
	"clinika/internal/domain/inventory/fefo"
	"clinika/internal/domain/inventory/ledger"
)

// memBatches is an in-memory batch.Repository for engine tests.
type memBatches struct {
	items []*batch.Batch
}

func (m *memBatches) Create(_ context.Context, b *batch.Batch) error {
	m.items = append(m.items, b)
	return nil
}

func (m *memBatches) GetByID(_ context.Context, batchID id.ID) (*batch.Batch, error) {
	for _, b := range m.items {
		if b.ID == batchID {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchID.String())
}

func (m *memBatches) GetByDrugAndLotCode(_ context.Context, drugID id.ID, lotCode string) (*batch.Batch, error) {
	for _, b := range m.items {
		if b.DrugID == drugID && b.LotCode == lotCode && !b.IsDeleted() {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("batch", lotCode)
}

func (m *memBatches) ListForUpdateByDrug(_ context.Context, drugID id.ID) ([]*batch.Batch, error) {
	var res []*batch.Batch
	for _, b := range m.items {
		if b.DrugID == drugID && !b.IsDeleted() {
			res = append(res, b)
		}
	}
	fefo.Sort(res)
	return res, nil
}

func (m *memBatches) ListByDrug(ctx context.Context, drugID id.ID) ([]*batch.Batch, error) {
	return m.ListForUpdateByDrug(ctx, drugID)
}

func (m *memBatches) UpdateQuantity(ctx context.Context, batchID id.ID, quantity types.Quantity) error {
	b, err := m.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	b.Quantity = quantity
	return nil
}

func (m *memBatches) SetExpiry(ctx context.Context, batchID id.ID, expiresAt time.Time) error {
	b, err := m.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	b.ExpiresAt = &expiresAt
	return nil
}

func (m *memBatches) SoftDelete(ctx context.Context, batchID id.ID) error {
	b, err := m.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	b.MarkDeleted()
	return nil
}

// memLedger is an in-memory ledger.Repository.
type memLedger struct {
	movements []ledger.Movement
}

func (m *memLedger) Append(_ context.Context, movements []ledger.Movement) error {
	m.movements = append(m.movements, movements...)
	return nil
}

func (m *memLedger) ListByDrug(_ context.Context, drugID id.ID, _ ledger.HistoryFilter) ([]ledger.Movement, error) {
	var res []ledger.Movement
	for _, mv := range m.movements {
		if mv.DrugID == drugID {
			res = append(res, mv)
		}
	}
	return res, nil
}

func (m *memLedger) TotalsByDrug(_ context.Context, drugID id.ID) (ledger.Totals, error) {
	t := ledger.Totals{DrugID: drugID}
	for _, mv := range m.movements {
		if mv.DrugID != drugID {
			continue
		}
		if mv.Direction == ledger.DirectionIn {
			t.In += mv.Quantity
		} else {
			t.Out += mv.Quantity
		}
	}
	return t, nil
}

// nopTx runs the function directly, without a database.
type nopTx struct{}

func (nopTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// seqLots produces deterministic lot codes.
type seqLots struct {
	n int
}

func (s *seqLots) Next(prefix string, _ id.ID, _ time.Time) string {
	s.n++
	return fmt.Sprintf("%s-TEST-%04d", prefix, s.n)
}

type fixture struct {
	engine  *Engine
	batches *memBatches
	ledger  *memLedger
}

func newFixture() *fixture {
	batches := &memBatches{}
	led := &memLedger{}
	return &fixture{
		engine:  New(batches, ledger.NewService(led), &seqLots{}, nopTx{}),
		batches: batches,
		ledger:  led,
	}
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (f *fixture) seedBatch(drugID id.ID, lot string, qty int64, exp *time.Time) *batch.Batch {
	b := batch.New(drugID, lot, types.Quantity(qty), exp)
	f.batches.items = append(f.batches.items, b)
	return b
}

func (f *fixture) totalOnHand(t *testing.T, drugID id.ID) types.Quantity {
	t.Helper()
	batches, err := f.batches.ListByDrug(context.Background(), drugID)
	require.NoError(t, err)
	var total types.Quantity
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}

func TestReceivePurchase_CreatesBatchesAndMovements(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	drugID := id.New()
	orderID := id.New()

	err := f.engine.ReceivePurchase(ctx, orderID, []ReceiptLine{
		{DrugID: drugID, LotCode: "L1", Quantity: 30, ExpiresAt: date(2026, 5, 1)},
		{DrugID: drugID, LotCode: "L2", Quantity: 20},
	})
	require.NoError(t, err)

	b1, err := f.batches.GetByDrugAndLotCode(ctx, drugID, "L1")
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(30), b1.Quantity)
	require.NotNil(t, b1.ExpiresAt)
	assert.Equal(t, *date(2026, 5, 1), *b1.ExpiresAt)

	b2, err := f.batches.GetByDrugAndLotCode(ctx, drugID, "L2")
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(20), b2.Quantity)
	assert.Nil(t, b2.ExpiresAt)

	require.Len(t, f.ledger.movements, 2)
	for _, m := range f.ledger.movements {
		assert.Equal(t, ledger.DirectionIn, m.Direction)
		assert.Equal(t, ledger.SourcePurchase, m.Source)
		require.NotNil(t, m.SourceID)
		assert.Equal(t, orderID, *m.SourceID)
	}
}

func TestReceivePurchase_CreditsExistingBatchByLotCode(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	existing := f.seedBatch(drugID, "L1", 10, date(2026, 5, 1))

	err := f.engine.ReceivePurchase(context.Background(), id.New(), []ReceiptLine{
		{DrugID: drugID, LotCode: "L1", Quantity: 5, ExpiresAt: date(2027, 1, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(15), existing.Quantity)
	// An already-set expiry is never overwritten.
	assert.Equal(t, *date(2026, 5, 1), *existing.ExpiresAt)
	assert.Len(t, f.batches.items, 1)
}

func TestReceivePurchase_BackfillsMissingExpiry(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	existing := f.seedBatch(drugID, "L1", 10, nil)

	err := f.engine.ReceivePurchase(context.Background(), id.New(), []ReceiptLine{
		{DrugID: drugID, LotCode: "L1", Quantity: 5, ExpiresAt: date(2026, 8, 1)},
	})
	require.NoError(t, err)

	require.NotNil(t, existing.ExpiresAt)
	assert.Equal(t, *date(2026, 8, 1), *existing.ExpiresAt)
}

func TestReceivePurchase_SkipsNonPositiveLines(t *testing.T) {
	f := newFixture()
	drugID := id.New()

	err := f.engine.ReceivePurchase(context.Background(), id.New(), []ReceiptLine{
		{DrugID: drugID, LotCode: "L1", Quantity: 0},
		{DrugID: drugID, LotCode: "L2", Quantity: -5},
	})
	require.NoError(t, err)

	assert.Empty(t, f.batches.items)
	assert.Empty(t, f.ledger.movements)
}

func TestReceivePurchase_RequiresLotCode(t *testing.T) {
	f := newFixture()

	err := f.engine.ReceivePurchase(context.Background(), id.New(), []ReceiptLine{
		{DrugID: id.New(), LotCode: "", Quantity: 5},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestConsumePrescription_FEFOAcrossBatches(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	drugID := id.New()
	recordID := id.New()

	early := f.seedBatch(drugID, "B1", 10, date(2025, 1, 31))
	late := f.seedBatch(drugID, "B2", 10, date(2026, 6, 30))

	err := f.engine.ConsumePrescription(ctx, recordID, drugID, 12)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), early.Quantity)
	assert.Equal(t, types.Quantity(8), late.Quantity)

	require.Len(t, f.ledger.movements, 2)
	assert.Equal(t, early.ID, f.ledger.movements[0].BatchID)
	assert.Equal(t, types.Quantity(10), f.ledger.movements[0].Quantity)
	assert.Equal(t, late.ID, f.ledger.movements[1].BatchID)
	assert.Equal(t, types.Quantity(2), f.ledger.movements[1].Quantity)

	for _, m := range f.ledger.movements {
		assert.Equal(t, ledger.DirectionOut, m.Direction)
		assert.Equal(t, ledger.SourcePrescription, m.Source)
		require.NotNil(t, m.SourceID)
		assert.Equal(t, recordID, *m.SourceID)
	}
}

func TestConsumePrescription_NullExpiryConsumedLast(t *testing.T) {
	f := newFixture()
	drugID := id.New()

	noExp := f.seedBatch(drugID, "B1", 10, nil)
	dated := f.seedBatch(drugID, "B2", 4, date(2025, 3, 1))

	err := f.engine.ConsumePrescription(context.Background(), id.New(), drugID, 6)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), dated.Quantity)
	assert.Equal(t, types.Quantity(8), noExp.Quantity)
}

func TestConsumePrescription_PartialOnShortfall(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	b := f.seedBatch(drugID, "B1", 3, date(2025, 1, 31))

	// Allocation never fails closed; the line is recorded and the ledger
	// reflects the 3 units that actually moved.
	err := f.engine.ConsumePrescription(context.Background(), id.New(), drugID, 10)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), b.Quantity)
	require.Len(t, f.ledger.movements, 1)
	assert.Equal(t, types.Quantity(3), f.ledger.movements[0].Quantity)
}

func TestConsumePrescription_NoBatchesNoMovements(t *testing.T) {
	f := newFixture()

	err := f.engine.ConsumePrescription(context.Background(), id.New(), id.New(), 5)
	require.NoError(t, err)
	assert.Empty(t, f.ledger.movements)
}

func TestAdjustPrescription_IncreaseConsumesDelta(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	recordID := id.New()
	b := f.seedBatch(drugID, "B1", 10, date(2025, 6, 1))

	err := f.engine.AdjustPrescription(context.Background(), recordID, drugID, 3, 8)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(5), b.Quantity)
	require.Len(t, f.ledger.movements, 1)
	m := f.ledger.movements[0]
	assert.Equal(t, ledger.DirectionOut, m.Direction)
	assert.Equal(t, ledger.SourcePrescriptionAdjust, m.Source)
	assert.Equal(t, types.Quantity(5), m.Quantity)
}

func TestAdjustPrescription_DecreaseDepositsToEarliestBatch(t *testing.T) {
	f := newFixture()
	drugID := id.New()

	early := f.seedBatch(drugID, "B1", 2, date(2025, 1, 1))
	late := f.seedBatch(drugID, "B2", 9, date(2026, 1, 1))

	err := f.engine.AdjustPrescription(context.Background(), id.New(), drugID, 8, 3)
	require.NoError(t, err)

	// The full negative delta lands on the single soonest-expiring batch.
	assert.Equal(t, types.Quantity(7), early.Quantity)
	assert.Equal(t, types.Quantity(9), late.Quantity)

	require.Len(t, f.ledger.movements, 1)
	m := f.ledger.movements[0]
	assert.Equal(t, ledger.DirectionIn, m.Direction)
	assert.Equal(t, ledger.SourcePrescriptionAdjust, m.Source)
	assert.Equal(t, types.Quantity(5), m.Quantity)
}

func TestAdjustPrescription_NoChangeNoMovement(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	f.seedBatch(drugID, "B1", 10, nil)

	err := f.engine.AdjustPrescription(context.Background(), id.New(), drugID, 4, 4)
	require.NoError(t, err)
	assert.Empty(t, f.ledger.movements)
}

func TestRevertPrescription_DepositsFullQuantity(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	recordID := id.New()
	b := f.seedBatch(drugID, "B1", 1, date(2025, 4, 1))

	err := f.engine.RevertPrescription(context.Background(), recordID, drugID, 7)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(8), b.Quantity)
	require.Len(t, f.ledger.movements, 1)
	m := f.ledger.movements[0]
	assert.Equal(t, ledger.DirectionIn, m.Direction)
	assert.Equal(t, ledger.SourcePrescription, m.Source)
	require.NotNil(t, m.SourceID)
	assert.Equal(t, recordID, *m.SourceID)
	assert.Equal(t, types.Quantity(7), m.Quantity)
}

func TestRevertPrescription_CreatesReturnBatchWhenNoneExist(t *testing.T) {
	f := newFixture()
	drugID := id.New()

	err := f.engine.RevertPrescription(context.Background(), id.New(), drugID, 3)
	require.NoError(t, err)

	require.Len(t, f.batches.items, 1)
	b := f.batches.items[0]
	assert.Equal(t, "RET-TEST-0001", b.LotCode)
	assert.Equal(t, types.Quantity(3), b.Quantity)
	assert.Nil(t, b.ExpiresAt)

	require.Len(t, f.ledger.movements, 1)
	assert.Equal(t, b.ID, f.ledger.movements[0].BatchID)
}

func TestManualAdjust_InWithNewLotCode(t *testing.T) {
	f := newFixture()
	drugID := id.New()

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionIn,
		Quantity:  15,
		LotCode:   "FOUND-1",
		ExpiresAt: date(2026, 2, 1),
	})
	require.NoError(t, err)

	b, err := f.batches.GetByDrugAndLotCode(context.Background(), drugID, "FOUND-1")
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(15), b.Quantity)
	require.NotNil(t, b.ExpiresAt)

	require.Len(t, f.ledger.movements, 1)
	m := f.ledger.movements[0]
	assert.Equal(t, ledger.SourceAdjustment, m.Source)
	assert.Nil(t, m.SourceID)
}

func TestManualAdjust_InWithoutLotCodeUsesEarliestBatch(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	early := f.seedBatch(drugID, "B1", 5, date(2025, 2, 1))
	f.seedBatch(drugID, "B2", 5, date(2026, 2, 1))

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionIn,
		Quantity:  4,
	})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(9), early.Quantity)
}

func TestManualAdjust_InCreatesAdjustmentBatch(t *testing.T) {
	f := newFixture()
	drugID := id.New()

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionIn,
		Quantity:  9,
	})
	require.NoError(t, err)

	require.Len(t, f.batches.items, 1)
	assert.Equal(t, "ADJ-TEST-0001", f.batches.items[0].LotCode)
	assert.Equal(t, types.Quantity(9), f.batches.items[0].Quantity)
}

func TestManualAdjust_OutClampsAtZero(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	b := f.seedBatch(drugID, "B1", 20, date(2025, 6, 1))

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionOut,
		Quantity:  50,
	})
	require.NoError(t, err)

	// The batch floors at zero and the ledger shows the 20 actually removed.
	assert.Equal(t, types.Quantity(0), b.Quantity)
	require.Len(t, f.ledger.movements, 1)
	assert.Equal(t, types.Quantity(20), f.ledger.movements[0].Quantity)
	assert.Equal(t, ledger.DirectionOut, f.ledger.movements[0].Direction)
}

func TestManualAdjust_OutByLotCode(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	f.seedBatch(drugID, "B1", 10, date(2025, 1, 1))
	target := f.seedBatch(drugID, "B2", 10, date(2026, 1, 1))

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionOut,
		Quantity:  6,
		LotCode:   "B2",
	})
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(4), target.Quantity)
}

func TestManualAdjust_OutNoBatchFails(t *testing.T) {
	f := newFixture()

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    id.New(),
		Direction: ledger.DirectionOut,
		Quantity:  5,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNoBatchAvailable(err))
}

func TestManualAdjust_OutUnknownLotCodeFails(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	f.seedBatch(drugID, "B1", 10, nil)

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionOut,
		Quantity:  5,
		LotCode:   "NOPE",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNoBatchAvailable(err))
}

func TestManualAdjust_OutEmptyBatchIsNoOp(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	f.seedBatch(drugID, "B1", 0, date(2025, 1, 1))

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionOut,
		Quantity:  5,
	})
	require.NoError(t, err)
	assert.Empty(t, f.ledger.movements)
}

func TestManualAdjust_InvalidDirection(t *testing.T) {
	f := newFixture()

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    id.New(),
		Direction: "sideways",
		Quantity:  5,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestManualAdjust_NonPositiveQuantityIgnored(t *testing.T) {
	f := newFixture()
	drugID := id.New()
	f.seedBatch(drugID, "B1", 10, nil)

	err := f.engine.ManualAdjust(context.Background(), ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.DirectionOut,
		Quantity:  0,
	})
	require.NoError(t, err)
	assert.Empty(t, f.ledger.movements)
}

// TestConservation replays a full lifecycle and checks that on-hand stock
// equals ledger IN minus ledger OUT at every step.
func TestConservation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	drugID := id.New()
	recordID := id.New()

	check := func(step string) {
		totals, err := f.ledger.TotalsByDrug(ctx, drugID)
		require.NoError(t, err)
		assert.Equal(t, totals.Net(), f.totalOnHand(t, drugID), step)
	}

	require.NoError(t, f.engine.ReceivePurchase(ctx, id.New(), []ReceiptLine{
		{DrugID: drugID, LotCode: "L1", Quantity: 30, ExpiresAt: date(2025, 12, 1)},
		{DrugID: drugID, LotCode: "L2", Quantity: 20, ExpiresAt: date(2026, 6, 1)},
	}))
	check("after receipt")

	require.NoError(t, f.engine.ConsumePrescription(ctx, recordID, drugID, 12))
	check("after consumption")

	require.NoError(t, f.engine.AdjustPrescription(ctx, recordID, drugID, 12, 20))
	check("after increase")

	require.NoError(t, f.engine.AdjustPrescription(ctx, recordID, drugID, 20, 15))
	check("after decrease")

	require.NoError(t, f.engine.RevertPrescription(ctx, recordID, drugID, 15))
	check("after delete reversal")

	require.NoError(t, f.engine.ManualAdjust(ctx, ManualAdjustment{
		DrugID: drugID, Direction: ledger.DirectionOut, Quantity: 5,
	}))
	check("after manual out")

	assert.Equal(t, types.Quantity(45), f.totalOnHand(t, drugID))
}
