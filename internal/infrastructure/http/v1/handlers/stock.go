package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"clinika/internal/core/apperror"
	"clinika/internal/core/id"
	"clinika/internal/domain/inventory/batch"
	"clinika/internal/domain/inventory/engine"
	"clinika/internal/domain/inventory/ledger"
	"clinika/internal/domain/inventory/projection"
	"clinika/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for stock state: the projection, the
// batch store, the movement ledger and manual adjustments.
type StockHandler struct {
	*BaseHandler
	engine     *engine.Engine
	projection *projection.Service
	ledger     *ledger.Service
	batches    batch.Repository
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, eng *engine.Engine, proj *projection.Service, led *ledger.Service, batches batch.Repository) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		engine:      eng,
		projection:  proj,
		ledger:      led,
		batches:     batches,
	}
}

// GetSummaries handles GET /stock/summary
func (h *StockHandler) GetSummaries(c *gin.Context) {
	filter := projection.ListFilter{
		BelowMinStock: c.Query("belowMinStock") == "true",
		Limit:         h.ParseIntQuery(c, "limit", 100),
		Offset:        h.ParseIntQuery(c, "offset", 0),
	}

	for _, raw := range c.QueryArray("drugId") {
		parsed, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid drugId format"))
			return
		}
		filter.DrugIDs = append(filter.DrugIDs, parsed)
	}

	summaries, err := h.projection.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockSummaryResponse, len(summaries))
	for i, s := range summaries {
		items[i] = dto.FromSummary(s)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// GetSummary handles GET /stock/summary/:drugId
func (h *StockHandler) GetSummary(c *gin.Context) {
	drugID, err := id.Parse(c.Param("drugId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid drugId format"))
		return
	}

	summary, err := h.projection.ByDrug(c.Request.Context(), drugID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSummary(summary))
}

// GetBatches handles GET /stock/batches/:drugId
func (h *StockHandler) GetBatches(c *gin.Context) {
	drugID, err := id.Parse(c.Param("drugId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid drugId format"))
		return
	}

	batches, err := h.batches.ListByDrug(c.Request.Context(), drugID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.BatchResponse, len(batches))
	for i, b := range batches {
		items[i] = dto.FromBatch(b)
	}

	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// GetMovements handles GET /stock/movements/:drugId
func (h *StockHandler) GetMovements(c *gin.Context) {
	drugID, err := id.Parse(c.Param("drugId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid drugId format"))
		return
	}

	filter := ledger.HistoryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if dir := c.Query("direction"); dir != "" {
		d := ledger.Direction(dir)
		filter.Direction = &d
	}
	if src := c.Query("source"); src != "" {
		s := ledger.Source(src)
		filter.Source = &s
	}
	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.FromDate = &parsed
		}
	}
	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.ToDate = &parsed
		}
	}
	if c.Query("order") == "asc" {
		filter.Order = ledger.SortAsc
	}

	movements, err := h.ledger.History(c.Request.Context(), drugID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, len(movements))
	for i, m := range movements {
		items[i] = dto.FromMovement(m)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// GetTotals handles GET /stock/totals/:drugId
func (h *StockHandler) GetTotals(c *gin.Context) {
	drugID, err := id.Parse(c.Param("drugId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid drugId format"))
		return
	}

	totals, err := h.ledger.TotalsByDrug(c.Request.Context(), drugID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTotals(totals))
}

// Adjust handles POST /stock/adjustments
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.ManualAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	adj, err := req.ToManualAdjustment()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.engine.ManualAdjust(c.Request.Context(), adj); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "adjustment applied")
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.GetSummaries)
	rg.GET("/summary/:drugId", h.GetSummary)
	rg.GET("/batches/:drugId", h.GetBatches)
	rg.GET("/movements/:drugId", h.GetMovements)
	rg.GET("/totals/:drugId", h.GetTotals)
	rg.POST("/adjustments", h.Adjust)
}
