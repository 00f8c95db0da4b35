package handlers

import (
	"github.com/gin-gonic/gin"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/core/types"
	"clinika/internal/domain/records/prescription"
	"clinika/internal/infrastructure/http/v1/dto"
)

// PrescriptionHandler handles HTTP requests for prescription lines.
type PrescriptionHandler struct {
	*BaseHandler
	service *prescription.Service
}

// NewPrescriptionHandler creates a new prescription line handler.
func NewPrescriptionHandler(base *BaseHandler, service *prescription.Service) *PrescriptionHandler {
	return &PrescriptionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /records/prescription-lines
func (h *PrescriptionHandler) Create(c *gin.Context) {
	var req dto.CreatePrescriptionLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	l, err := req.ToLine()
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), l)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, created.ID.String())
}

// Get handles GET /records/prescription-lines/:id
func (h *PrescriptionHandler) Get(c *gin.Context) {
	lineID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), lineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPrescriptionLine(l))
}

// Update handles PUT /records/prescription-lines/:id
func (h *PrescriptionHandler) Update(c *gin.Context) {
	lineID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdatePrescriptionLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateQuantity(c.Request.Context(), lineID, types.Quantity(req.Quantity), req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPrescriptionLine(updated))
}

// Delete handles DELETE /records/prescription-lines/:id
func (h *PrescriptionHandler) Delete(c *gin.Context) {
	lineID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), lineID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /records/prescription-lines
func (h *PrescriptionHandler) List(c *gin.Context) {
	filter := prescription.ListFilter{
		IncludeDeleted: c.Query("includeDeleted") == "true",
		Limit:          h.ParseIntQuery(c, "limit", 100),
		Offset:         h.ParseIntQuery(c, "offset", 0),
	}

	if recordStr := c.Query("medicalRecordId"); recordStr != "" {
		parsed, err := id.Parse(recordStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid medicalRecordId format"))
			return
		}
		filter.MedicalRecordID = &parsed
	}
	if drugStr := c.Query("drugId"); drugStr != "" {
		parsed, err := id.Parse(drugStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid drugId format"))
			return
		}
		filter.DrugID = &parsed
	}

	lines, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PrescriptionLineResponse, len(lines))
	for i, l := range lines {
		items[i] = dto.FromPrescriptionLine(l)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// RegisterRoutes registers prescription line routes.
func (h *PrescriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
