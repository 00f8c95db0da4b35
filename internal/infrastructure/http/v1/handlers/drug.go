package handlers

import (
	"github.com/gin-gonic/gin"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/domain/catalogs/drug"
	"clinika/internal/infrastructure/http/v1/dto"
)

// DrugHandler handles HTTP requests for the drug catalog.
type DrugHandler struct {
	*BaseHandler
	service *drug.Service
}

// NewDrugHandler creates a new drug catalog handler.
func NewDrugHandler(base *BaseHandler, service *drug.Service) *DrugHandler {
	return &DrugHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /catalog/drugs
func (h *DrugHandler) Create(c *gin.Context) {
	var req dto.CreateDrugRequest
	if !h.BindJSON(c, &req) {
		return
	}

	d, err := req.ToDrug()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), d); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, d.ID.String())
}

// Get handles GET /catalog/drugs/:id
func (h *DrugHandler) Get(c *gin.Context) {
	drugID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	d, err := h.service.GetByID(c.Request.Context(), drugID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDrug(d))
}

// Update handles PUT /catalog/drugs/:id
func (h *DrugHandler) Update(c *gin.Context) {
	drugID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateDrugRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	d, err := h.service.GetByID(ctx, drugID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.Apply(d); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, d); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDrug(d))
}

// Delete handles DELETE /catalog/drugs/:id
func (h *DrugHandler) Delete(c *gin.Context) {
	drugID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), drugID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /catalog/drugs
func (h *DrugHandler) List(c *gin.Context) {
	filter := drug.ListFilter{
		Search:     c.Query("search"),
		ActiveOnly: c.Query("activeOnly") == "true",
		Limit:      h.ParseIntQuery(c, "limit", 50),
		Offset:     h.ParseIntQuery(c, "offset", 0),
	}

	drugs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DrugResponse, len(drugs))
	for i, d := range drugs {
		items[i] = dto.FromDrug(d)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// RegisterRoutes registers drug catalog routes.
func (h *DrugHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
