// Package ledger provides the movement ledger: an append-only log of every
// stock quantity change. Entries are immutable once written; ordering is
// defined by creation time (UUIDv7 ids break ties) and is load-bearing for
// replay and audit.
package ledger

import (
	"time"

	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

// Direction of a movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Source categorizes what caused a movement.
type Source string

const (
	SourcePurchase           Source = "purchase"
	SourcePrescription       Source = "prescription"
	SourcePrescriptionAdjust Source = "prescription_adjust"
	SourceAdjustment         Source = "adjustment"
)

// Movement is one immutable ledger entry.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	DrugID  id.ID `db:"drug_id" json:"drugId"`
	BatchID id.ID `db:"batch_id" json:"batchId"`

	Direction Direction `db:"direction" json:"direction"`
	Source    Source    `db:"source" json:"source"`

	// SourceID links to the originating record: purchase order id,
	// medical record id, or nil for manual adjustments.
	SourceID *id.ID `db:"source_id" json:"sourceId,omitempty"`

	// Quantity moved, strictly positive. For a clamped manual OUT this is
	// the clamped amount actually removed, not the requested one.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// DeletedAt exists for schema symmetry with the other tables; the
	// engine never deletes a movement.
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewMovement creates a ledger entry.
func NewMovement(drugID, batchID id.ID, direction Direction, source Source, sourceID *id.ID, qty types.Quantity) Movement {
	return Movement{
		ID:        id.New(),
		DrugID:    drugID,
		BatchID:   batchID,
		Direction: direction,
		Source:    source,
		SourceID:  sourceID,
		Quantity:  qty,
		CreatedAt: time.Now().UTC(),
	}
}

// SignedQuantity returns the quantity with direction applied.
// IN = positive, OUT = negative.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
