// Package batch provides the batch store: per-drug lots with quantity,
// expiry and lot code. Batches are mutated in place by every stock event
// and soft-deleted, never physically removed.
package batch

import (
	"time"

	"clinika/internal/core/entity"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

// Batch represents one receipt lot of a drug.
type Batch struct {
	entity.BaseEntity

	DrugID id.ID `db:"drug_id" json:"drugId"`

	// LotCode distinguishes batches of the same drug. Human-assigned on
	// purchase lines or synthesized (LOT-/RET-/ADJ- prefixes).
	LotCode string `db:"lot_code" json:"lotCode"`

	// Quantity on hand. Kept at >= 0; the manual OUT path clamps at zero.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// ExpiresAt is optional; batches without expiry sort last in FEFO order.
	ExpiresAt *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
}

// New creates a batch for a drug.
func New(drugID id.ID, lotCode string, quantity types.Quantity, expiresAt *time.Time) *Batch {
	return &Batch{
		BaseEntity: entity.NewBaseEntity(),
		DrugID:     drugID,
		LotCode:    lotCode,
		Quantity:   quantity,
		ExpiresAt:  expiresAt,
	}
}

// HasExpiry reports whether the batch carries an expiry date.
func (b *Batch) HasExpiry() bool {
	return b.ExpiresAt != nil
}
