package dto

import (
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/records/prescription"
)

// CreatePrescriptionLineRequest for recording a prescription line.
type CreatePrescriptionLineRequest struct {
	MedicalRecordID string `json:"medicalRecordId" binding:"required"`
	DrugID          string `json:"drugId" binding:"required"`
	Quantity        int64  `json:"quantity" binding:"required"`
	Note            string `json:"note"`
}

// ToLine converts the request into a prescription line.
func (r CreatePrescriptionLineRequest) ToLine() (*prescription.Line, error) {
	recordID, err := id.Parse(r.MedicalRecordID)
	if err != nil {
		return nil, apperror.NewValidation("invalid medicalRecordId format").
			WithDetail("field", "medicalRecordId")
	}

	drugID, err := id.Parse(r.DrugID)
	if err != nil {
		return nil, apperror.NewValidation("invalid drugId format").
			WithDetail("field", "drugId")
	}

	return prescription.New(recordID, drugID, types.Quantity(r.Quantity), r.Note), nil
}

// UpdatePrescriptionLineRequest for editing a line's quantity and note.
type UpdatePrescriptionLineRequest struct {
	Quantity int64  `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

// PrescriptionLineResponse is one stored prescription line.
type PrescriptionLineResponse struct {
	ID              string     `json:"id"`
	MedicalRecordID string     `json:"medicalRecordId"`
	DrugID          string     `json:"drugId"`
	Quantity        int64      `json:"quantity"`
	Note            string     `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
}

// FromPrescriptionLine creates PrescriptionLineResponse from a line entity.
func FromPrescriptionLine(l *prescription.Line) PrescriptionLineResponse {
	return PrescriptionLineResponse{
		ID:              l.ID.String(),
		MedicalRecordID: l.MedicalRecordID.String(),
		DrugID:          l.DrugID.String(),
		Quantity:        l.Quantity.Int64(),
		Note:            l.Note,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
		DeletedAt:       l.DeletedAt,
	}
}
