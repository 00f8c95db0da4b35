package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/batch"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSummarize(t *testing.T) {
	drugID := id.New()

	b1 := batch.New(drugID, "B1", 10, date(2025, 1, 31))
	b2 := batch.New(drugID, "B2", 5, date(2026, 6, 30))
	noExp := batch.New(drugID, "B3", 3, nil)

	s := Summarize(drugID, []*batch.Batch{b2, b1, noExp})

	assert.Equal(t, types.Quantity(18), s.TotalQty)
	assert.Equal(t, *date(2025, 1, 31), *s.NearestExp)
}

func TestSummarize_EmptyBatchDoesNotSetNearestExp(t *testing.T) {
	drugID := id.New()

	// Nearest expiry only considers batches with stock on hand.
	empty := batch.New(drugID, "B1", 0, date(2024, 1, 1))
	full := batch.New(drugID, "B2", 7, date(2026, 3, 1))

	s := Summarize(drugID, []*batch.Batch{empty, full})

	assert.Equal(t, types.Quantity(7), s.TotalQty)
	assert.Equal(t, *date(2026, 3, 1), *s.NearestExp)
}

func TestSummarize_SkipsDeletedBatches(t *testing.T) {
	drugID := id.New()

	live := batch.New(drugID, "B1", 4, nil)
	removed := batch.New(drugID, "B2", 9, date(2025, 1, 1))
	removed.MarkDeleted()

	s := Summarize(drugID, []*batch.Batch{live, removed})

	assert.Equal(t, types.Quantity(4), s.TotalQty)
	assert.Nil(t, s.NearestExp)
}

func TestSummarize_NoBatches(t *testing.T) {
	drugID := id.New()

	s := Summarize(drugID, nil)

	assert.Equal(t, types.Quantity(0), s.TotalQty)
	assert.Nil(t, s.NearestExp)
	assert.Equal(t, drugID, s.DrugID)
}
