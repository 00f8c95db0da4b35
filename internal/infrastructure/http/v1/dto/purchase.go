package dto

import (
	"time"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/documents/purchase"
)

// PurchaseLineRequest is one line of a purchase order payload.
type PurchaseLineRequest struct {
	DrugID    string     `json:"drugId" binding:"required"`
	Quantity  int64      `json:"quantity" binding:"required"`
	UnitPrice string     `json:"unitPrice" binding:"required"`
	LotCode   string     `json:"lotCode"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// CreatePurchaseRequest for creating purchase orders.
type CreatePurchaseRequest struct {
	SupplierName string                `json:"supplierName" binding:"required"`
	Lines        []PurchaseLineRequest `json:"lines" binding:"required"`
}

// ToOrder converts the request into a draft order.
func (r CreatePurchaseRequest) ToOrder() (*purchase.Order, error) {
	o := purchase.NewOrder(r.SupplierName)

	for i, line := range r.Lines {
		drugID, err := id.Parse(line.DrugID)
		if err != nil {
			return nil, apperror.NewValidation("invalid drugId format").
				WithDetail("lineNo", i+1)
		}

		price, err := types.NewMoneyFromString(line.UnitPrice)
		if err != nil {
			return nil, apperror.NewValidation("invalid unitPrice").
				WithDetail("lineNo", i+1)
		}

		o.AddLine(drugID, types.Quantity(line.Quantity), price, line.LotCode, line.ExpiresAt)
	}

	return o, nil
}

// PurchaseLineResponse is one stored purchase line.
type PurchaseLineResponse struct {
	LineID    string     `json:"lineId"`
	LineNo    int        `json:"lineNo"`
	DrugID    string     `json:"drugId"`
	Quantity  int64      `json:"quantity"`
	UnitPrice string     `json:"unitPrice"`
	Amount    string     `json:"amount"`
	LotCode   string     `json:"lotCode"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// PurchaseOrderResponse is a purchase order with lines.
type PurchaseOrderResponse struct {
	ID           string                 `json:"id"`
	Number       string                 `json:"number"`
	SupplierName string                 `json:"supplierName"`
	Status       string                 `json:"status"`
	FinalizedAt  *time.Time             `json:"finalizedAt,omitempty"`
	TotalAmount  string                 `json:"totalAmount"`
	Lines        []PurchaseLineResponse `json:"lines"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// FromOrder creates PurchaseOrderResponse from an order entity.
func FromOrder(o *purchase.Order) PurchaseOrderResponse {
	lines := make([]PurchaseLineResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, PurchaseLineResponse{
			LineID:    line.LineID.String(),
			LineNo:    line.LineNo,
			DrugID:    line.DrugID.String(),
			Quantity:  line.Quantity.Int64(),
			UnitPrice: line.UnitPrice.String(),
			Amount:    line.Amount.String(),
			LotCode:   line.LotCode,
			ExpiresAt: line.ExpiresAt,
			DeletedAt: line.DeletedAt,
		})
	}

	return PurchaseOrderResponse{
		ID:           o.ID.String(),
		Number:       o.Number,
		SupplierName: o.SupplierName,
		Status:       string(o.Status),
		FinalizedAt:  o.FinalizedAt,
		TotalAmount:  o.TotalAmount.String(),
		Lines:        lines,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
