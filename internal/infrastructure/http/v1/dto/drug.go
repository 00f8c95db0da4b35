package dto

import (
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/types"
	"clinika/internal/domain/catalogs/drug"
)

// DrugResponse contains drug catalog fields.
type DrugResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Unit      string     `json:"unit"`
	UnitPrice string     `json:"unitPrice"`
	MinStock  int64      `json:"minStock"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// FromDrug creates DrugResponse from a drug entity.
func FromDrug(d *drug.Drug) DrugResponse {
	return DrugResponse{
		ID:        d.ID.String(),
		Name:      d.Name,
		Unit:      string(d.Unit),
		UnitPrice: d.UnitPrice.String(),
		MinStock:  d.MinStock.Int64(),
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		DeletedAt: d.DeletedAt,
	}
}

// CreateDrugRequest for creating drugs.
type CreateDrugRequest struct {
	Name      string `json:"name" binding:"required"`
	Unit      string `json:"unit" binding:"required"`
	UnitPrice string `json:"unitPrice" binding:"required"`
	MinStock  int64  `json:"minStock"`
}

// ToDrug converts the request into a new drug entity.
func (r CreateDrugRequest) ToDrug() (*drug.Drug, error) {
	price, err := types.NewMoneyFromString(r.UnitPrice)
	if err != nil {
		return nil, apperror.NewValidation("invalid unitPrice").
			WithDetail("field", "unitPrice")
	}

	d := drug.New(r.Name, drug.Unit(r.Unit), price)
	d.MinStock = types.Quantity(r.MinStock)
	return d, nil
}

// UpdateDrugRequest for updating drugs.
type UpdateDrugRequest struct {
	Name      string `json:"name" binding:"required"`
	Unit      string `json:"unit" binding:"required"`
	UnitPrice string `json:"unitPrice" binding:"required"`
	MinStock  int64  `json:"minStock"`
	Active    *bool  `json:"active"`
}

// Apply writes request fields onto an existing drug.
func (r UpdateDrugRequest) Apply(d *drug.Drug) error {
	price, err := types.NewMoneyFromString(r.UnitPrice)
	if err != nil {
		return apperror.NewValidation("invalid unitPrice").
			WithDetail("field", "unitPrice")
	}

	d.Name = r.Name
	d.Unit = drug.Unit(r.Unit)
	d.UnitPrice = price
	d.MinStock = types.Quantity(r.MinStock)
	if r.Active != nil {
		d.Active = *r.Active
	}
	return nil
}
