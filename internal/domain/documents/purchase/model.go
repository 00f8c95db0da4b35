// Package purchase provides the purchase order document. Recording lines on
// a draft order has no inventory effect; the finalize transition credits
// stock through the mutation engine exactly once.
package purchase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"clinika/internal/core/apperror"
	"clinika/internal/core/entity"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
)

// Status of a purchase order.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
)

// Order represents one purchase from a supplier.
type Order struct {
	entity.BaseEntity

	// Number is the document number (generated when empty)
	Number string `db:"number" json:"number"`

	SupplierName string `db:"supplier_name" json:"supplierName"`

	Status Status `db:"status" json:"status"`

	// FinalizedAt records the single draft→finalized transition
	FinalizedAt *time.Time `db:"finalized_at" json:"finalizedAt,omitempty"`

	// TotalAmount is calculated from lines
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one purchased drug lot.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	DrugID id.ID `db:"drug_id" json:"drugId"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Amount    types.Money    `db:"amount" json:"amount"`

	// LotCode is human-assigned or synthesized once at recording time
	LotCode string `db:"lot_code" json:"lotCode"`

	ExpiresAt *time.Time `db:"expires_at" json:"expiresAt,omitempty"`

	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewOrder creates a draft purchase order.
func NewOrder(supplierName string) *Order {
	return &Order{
		BaseEntity:   entity.NewBaseEntity(),
		SupplierName: supplierName,
		Status:       StatusDraft,
		TotalAmount:  types.ZeroMoney(),
		Lines:        make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (o *Order) AddLine(drugID id.ID, qty types.Quantity, unitPrice types.Money, lotCode string, expiresAt *time.Time) {
	line := Line{
		LineID:    id.New(),
		LineNo:    len(o.Lines) + 1,
		DrugID:    drugID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		Amount:    unitPrice.Mul(decimal.NewFromInt(qty.Int64())),
		LotCode:   lotCode,
		ExpiresAt: expiresAt,
	}
	o.Lines = append(o.Lines, line)
	o.recalculateTotal()
}

// recalculateTotal updates the document total from lines.
func (o *Order) recalculateTotal() {
	total := types.ZeroMoney()
	for _, line := range o.Lines {
		if line.DeletedAt != nil {
			continue
		}
		total = total.Add(line.Amount)
	}
	o.TotalAmount = total
}

// IsFinalized reports whether stock has been credited for this order.
func (o *Order) IsFinalized() bool {
	return o.Status == StatusFinalized
}

// CanModify checks if the order can still be edited.
func (o *Order) CanModify() error {
	if o.IsFinalized() {
		return apperror.NewBusinessRule(
			apperror.CodeOrderFinalized,
			"Cannot modify a finalized purchase order.",
		).WithDetail("order_id", o.ID.String())
	}
	return nil
}

// MarkFinalized records the finalize transition.
func (o *Order) MarkFinalized() {
	now := time.Now().UTC()
	o.Status = StatusFinalized
	o.FinalizedAt = &now
	o.Touch()
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if len(o.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range o.Lines {
		if id.IsNil(line.DrugID) {
			return apperror.NewValidation("drug is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
