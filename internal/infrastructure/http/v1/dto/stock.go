package dto

import (
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/inventory/batch"
	"clinika/internal/domain/inventory/engine"
	"clinika/internal/domain/inventory/ledger"
	"clinika/internal/domain/inventory/projection"
)

// StockSummaryResponse is the per-drug stock projection.
type StockSummaryResponse struct {
	DrugID     string     `json:"drugId"`
	TotalQty   int64      `json:"totalQty"`
	NearestExp *time.Time `json:"nearestExp,omitempty"`
}

// FromSummary creates StockSummaryResponse from a projection summary.
func FromSummary(s projection.Summary) StockSummaryResponse {
	return StockSummaryResponse{
		DrugID:     s.DrugID.String(),
		TotalQty:   s.TotalQty.Int64(),
		NearestExp: s.NearestExp,
	}
}

// BatchResponse is one batch of the batch store.
type BatchResponse struct {
	ID        string     `json:"id"`
	DrugID    string     `json:"drugId"`
	LotCode   string     `json:"lotCode"`
	Quantity  int64      `json:"quantity"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FromBatch creates BatchResponse from a batch entity.
func FromBatch(b *batch.Batch) BatchResponse {
	return BatchResponse{
		ID:        b.ID.String(),
		DrugID:    b.DrugID.String(),
		LotCode:   b.LotCode,
		Quantity:  b.Quantity.Int64(),
		ExpiresAt: b.ExpiresAt,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// MovementResponse is one movement ledger entry.
type MovementResponse struct {
	ID        string    `json:"id"`
	DrugID    string    `json:"drugId"`
	BatchID   string    `json:"batchId"`
	Direction string    `json:"direction"`
	Source    string    `json:"source"`
	SourceID  *string   `json:"sourceId,omitempty"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromMovement creates MovementResponse from a ledger movement.
func FromMovement(m ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:        m.ID.String(),
		DrugID:    m.DrugID.String(),
		BatchID:   m.BatchID.String(),
		Direction: string(m.Direction),
		Source:    string(m.Source),
		Quantity:  m.Quantity.Int64(),
		CreatedAt: m.CreatedAt,
	}
	if m.SourceID != nil {
		s := m.SourceID.String()
		resp.SourceID = &s
	}
	return resp
}

// LedgerTotalsResponse is the ledger-side sum for a drug.
type LedgerTotalsResponse struct {
	DrugID string `json:"drugId"`
	In     int64  `json:"in"`
	Out    int64  `json:"out"`
	Net    int64  `json:"net"`
}

// FromTotals creates LedgerTotalsResponse from ledger totals.
func FromTotals(t ledger.Totals) LedgerTotalsResponse {
	return LedgerTotalsResponse{
		DrugID: t.DrugID.String(),
		In:     t.In.Int64(),
		Out:    t.Out.Int64(),
		Net:    t.Net().Int64(),
	}
}

// ManualAdjustmentRequest for POST /stock/adjustments.
type ManualAdjustmentRequest struct {
	DrugID    string     `json:"drugId" binding:"required"`
	Direction string     `json:"direction" binding:"required"`
	Quantity  int64      `json:"quantity" binding:"required"`
	LotCode   string     `json:"lotCode"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// ToManualAdjustment converts the request into an engine adjustment.
func (r ManualAdjustmentRequest) ToManualAdjustment() (engine.ManualAdjustment, error) {
	drugID, err := id.Parse(r.DrugID)
	if err != nil {
		return engine.ManualAdjustment{}, apperror.NewValidation("invalid drugId format").
			WithDetail("field", "drugId")
	}

	return engine.ManualAdjustment{
		DrugID:    drugID,
		Direction: ledger.Direction(r.Direction),
		Quantity:  types.Quantity(r.Quantity),
		LotCode:   r.LotCode,
		ExpiresAt: r.ExpiresAt,
	}, nil
}
