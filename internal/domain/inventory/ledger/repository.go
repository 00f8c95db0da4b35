package ledger

import (
	"context"
	"time"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

// SortOrder for movement history queries.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// HistoryFilter narrows movement history queries.
type HistoryFilter struct {
	Direction *Direction
	Source    *Source
	FromDate  *time.Time
	ToDate    *time.Time
	Order     SortOrder
	Limit     int
	Offset    int
}

// Totals holds the ledger-side quantity sums for a drug, restricted to
// movements tied to non-deleted batches.
type Totals struct {
	DrugID id.ID          `json:"drugId"`
	In     types.Quantity `json:"in"`
	Out    types.Quantity `json:"out"`
}

// Net returns in minus out.
func (t Totals) Net() types.Quantity {
	return t.In - t.Out
}

// Repository defines persistence operations for the movement ledger.
// The ledger is append-only: there is no update or delete operation.
type Repository interface {
	// Append inserts movements in order. Used inside engine transactions.
	Append(ctx context.Context, movements []Movement) error

	// ListByDrug returns movement history for a drug ordered by creation time.
	ListByDrug(ctx context.Context, drugID id.ID, filter HistoryFilter) ([]Movement, error)

	// TotalsByDrug sums IN and OUT quantities for movements tied to
	// non-deleted batches of the drug. Used for conservation checks.
	TotalsByDrug(ctx context.Context, drugID id.ID) (Totals, error)
}
