// Package prescription manages medical record prescription lines. Each
// line mutation carries a matching inventory effect: creating a line
// dispenses stock, editing the quantity applies the delta, deleting the
// line returns the dispensed quantity.
package prescription

import (
	"context"

	"clinika/internal/core/apperror"
	"clinika/internal/core/entity"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

// Line is one prescribed drug on a medical record.
type Line struct {
	entity.BaseEntity

	MedicalRecordID id.ID `db:"medical_record_id" json:"medicalRecordId"`
	DrugID          id.ID `db:"drug_id" json:"drugId"`

	// Quantity dispensed when the line was recorded
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Note holds dosage instructions
	Note string `db:"note" json:"note,omitempty"`
}

// New creates a prescription line.
func New(medicalRecordID, drugID id.ID, qty types.Quantity, note string) *Line {
	return &Line{
		BaseEntity:      entity.NewBaseEntity(),
		MedicalRecordID: medicalRecordID,
		DrugID:          drugID,
		Quantity:        qty,
		Note:            note,
	}
}

// Validate implements entity.Validatable.
func (l *Line) Validate(ctx context.Context) error {
	if id.IsNil(l.MedicalRecordID) {
		return apperror.NewValidation("medical record is required").
			WithDetail("field", "medicalRecordId")
	}
	if id.IsNil(l.DrugID) {
		return apperror.NewValidation("drug is required").
			WithDetail("field", "drugId")
	}
	if !l.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	return nil
}
