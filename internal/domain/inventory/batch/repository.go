package batch

import (
	"context"
	"time"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

// Repository defines persistence operations for the batch store.
//
// All mutating engine paths read batches with ListForUpdateByDrug so the
// database's row locks serialize concurrent stock events on the same drug
// for the duration of the enclosing transaction.
type Repository interface {
	// Create inserts a new batch row.
	Create(ctx context.Context, b *Batch) error

	// GetByID retrieves one batch (including soft-deleted).
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// GetByDrugAndLotCode retrieves a non-deleted batch by its natural key.
	// Returns a NOT_FOUND AppError when absent.
	GetByDrugAndLotCode(ctx context.Context, drugID id.ID, lotCode string) (*Batch, error)

	// ListForUpdateByDrug returns all non-deleted batches of a drug in FEFO
	// order (expires_at ascending, nulls last, then id) with row locks held.
	// Must be called inside a transaction.
	ListForUpdateByDrug(ctx context.Context, drugID id.ID) ([]*Batch, error)

	// ListByDrug returns non-deleted batches in FEFO order without locking.
	ListByDrug(ctx context.Context, drugID id.ID) ([]*Batch, error)

	// UpdateQuantity sets the on-hand quantity of a batch.
	UpdateQuantity(ctx context.Context, batchID id.ID, quantity types.Quantity) error

	// SetExpiry backfills the expiry date of a batch that has none.
	SetExpiry(ctx context.Context, batchID id.ID, expiresAt time.Time) error

	// SoftDelete marks a batch as removed. Not driven by the engine itself,
	// but required for consistency with the surrounding system.
	SoftDelete(ctx context.Context, batchID id.ID) error
}
