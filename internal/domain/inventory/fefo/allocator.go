// Package fefo implements First-Expired-First-Out allocation planning.
// The allocator is pure: it computes which batches to debit and by how
// much; executing the debits is the stock mutation engine's job.
package fefo

import (
	"sort"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/batch"
)

// Debit is one planned deduction from a batch.
type Debit struct {
	BatchID  id.ID
	Quantity types.Quantity
}

// Less orders batches for consumption: earliest expiry first, batches
// without expiry last, UUIDv7 id as tie-break (creation order).
func Less(a, b *batch.Batch) bool {
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt == nil:
		return a.ID.String() < b.ID.String()
	case a.ExpiresAt == nil:
		return false
	case b.ExpiresAt == nil:
		return true
	case a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ID.String() < b.ID.String()
	default:
		return a.ExpiresAt.Before(*b.ExpiresAt)
	}
}

// Sort orders batches in place in FEFO consumption order.
func Sort(batches []*batch.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return Less(batches[i], batches[j])
	})
}

// Plan walks batches in FEFO order and allocates up to need units.
//
// Batches must already be in FEFO order (as returned by the batch store).
// Empty batches are skipped. When total stock is insufficient the plan is
// partial: the remaining need is not an error here. Callers decide whether
// a shortfall matters, and the consumption paths deliberately accept it.
func Plan(batches []*batch.Batch, need types.Quantity) []Debit {
	if !need.IsPositive() {
		return nil
	}

	var plan []Debit
	remaining := need

	for _, b := range batches {
		if !b.Quantity.IsPositive() {
			continue
		}

		take := b.Quantity.Min(remaining)
		plan = append(plan, Debit{BatchID: b.ID, Quantity: take})

		remaining -= take
		if remaining == 0 {
			break
		}
	}

	return plan
}

// Shortfall returns how much of need a plan leaves unallocated.
func Shortfall(plan []Debit, need types.Quantity) types.Quantity {
	allocated := types.Quantity(0)
	for _, d := range plan {
		allocated += d.Quantity
	}
	if allocated >= need {
		return 0
	}
	return need - allocated
}
