// Package drug provides the Drug catalog (pharmacy master data).
// Drugs are referenced, never mutated, by the stock mutation engine.
package drug

import (
	"context"
	"strings"

	"clinika/internal/core/apperror"
	"clinika/internal/core/entity"
	"clinika/internal/core/types"
)

// Unit of measure for dispensing.
type Unit string

const (
	UnitTablet  Unit = "tablet"
	UnitCapsule Unit = "capsule"
	UnitBottle  Unit = "bottle"
	UnitVial    Unit = "vial"
	UnitTube    Unit = "tube"
	UnitSachet  Unit = "sachet"
	UnitPiece   Unit = "piece"
)

// Drug represents one pharmacy item.
type Drug struct {
	entity.BaseEntity

	// Name is unique across the catalog
	Name string `db:"name" json:"name"`

	// Unit of measure for dispensing and stock counting
	Unit Unit `db:"unit" json:"unit"`

	// UnitPrice is the selling price per unit
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// MinStock is the reorder threshold; the low-stock report compares the
	// stock projection against it
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// Active controls whether the drug can appear on new prescriptions
	Active bool `db:"active" json:"active"`
}

// New creates a new Drug with required fields.
func New(name string, unit Unit, unitPrice types.Money) *Drug {
	return &Drug{
		BaseEntity: entity.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Unit:       unit,
		UnitPrice:  unitPrice,
		Active:     true,
	}
}

// Validate implements entity.Validatable.
func (d *Drug) Validate(ctx context.Context) error {
	if strings.TrimSpace(d.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if d.Unit == "" {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unit")
	}

	if d.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}

	if d.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minStock")
	}

	return nil
}
