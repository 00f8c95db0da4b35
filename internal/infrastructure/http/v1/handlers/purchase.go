package handlers

import (
	"github.com/gin-gonic/gin"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/domain/documents/purchase"
	"clinika/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler handles HTTP requests for purchase orders.
type PurchaseHandler struct {
	*BaseHandler
	service *purchase.Service
}

// NewPurchaseHandler creates a new purchase order handler.
func NewPurchaseHandler(base *BaseHandler, service *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /documents/purchase-orders
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := req.ToOrder()
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), o)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, created.ID.String())
}

// Get handles GET /documents/purchase-orders/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	o, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(o))
}

// Update handles PUT /documents/purchase-orders/:id
func (h *PurchaseHandler) Update(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	o, err := req.ToOrder()
	if err != nil {
		h.Error(c, err)
		return
	}
	o.ID = orderID

	updated, err := h.service.Update(c.Request.Context(), o)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(updated))
}

// Finalize handles POST /documents/purchase-orders/:id/finalize
func (h *PurchaseHandler) Finalize(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	o, err := h.service.Finalize(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(o))
}

// List handles GET /documents/purchase-orders
func (h *PurchaseHandler) List(c *gin.Context) {
	filter := purchase.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := purchase.Status(statusStr)
		filter.Status = &status
	}

	orders, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PurchaseOrderResponse, len(orders))
	for i, o := range orders {
		items[i] = dto.FromOrder(o)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// RegisterRoutes registers purchase order routes.
func (h *PurchaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/finalize", h.Finalize)
}
