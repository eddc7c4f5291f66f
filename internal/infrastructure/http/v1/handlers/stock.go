package handlers

import (
	"github.com/gin-gonic/gin"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/registers/stock"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// adjustReasons are the movement reasons a manual adjustment may carry.
var adjustReasons = map[string]stock.MovementReason{
	"purchase":          stock.ReasonPurchase,
	"return":            stock.ReasonReturn,
	"spoilage":          stock.ReasonSpoilage,
	"loss":              stock.ReasonLoss,
	"manual-adjustment": stock.ReasonManual,
}

// StockHandler handles HTTP requests for the stock ledger.
type StockHandler struct {
	*BaseHandler
	service  *stock.Service
	products *product.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service, products *product.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service, products: products}
}

// Initialize handles POST /inventory/initialize
func (h *StockHandler) Initialize(c *gin.Context) {
	var req dto.InitializeStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	level, err := h.service.Initialize(c.Request.Context(), stock.InitializeInput{
		ProductID: productID,
		Units:     req.Units,
		Doses:     req.Doses,
		Note:      req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// Adjust handles POST /inventory/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	reason, ok := adjustReasons[req.Reason]
	if !ok {
		h.Error(c, apperror.NewValidation("unknown adjustment reason").
			WithDetail("reason", req.Reason))
		return
	}
	if !req.Qty.IsPositive() {
		h.Error(c, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "qty"))
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	ctx := c.Request.Context()
	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	var level *stock.Level
	if req.Inbound {
		level, err = h.service.Restock(ctx, stock.RestockInput{
			Product:    p,
			Qty:        req.Qty,
			WholeUnits: req.WholeUnit,
			Reason:     reason,
			Note:       req.Note,
		})
	} else {
		level, err = h.service.Consume(ctx, stock.ConsumeInput{
			Product:    p,
			Qty:        req.Qty,
			WholeUnits: req.WholeUnit,
			Reason:     reason,
			Note:       req.Note,
		})
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// Consume handles POST /inventory/consume
func (h *StockHandler) Consume(c *gin.Context) {
	var req dto.ConsumeStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	reasonName := req.Reason
	if reasonName == "" {
		reasonName = "manual-adjustment"
	}
	reason, ok := adjustReasons[reasonName]
	if !ok {
		h.Error(c, apperror.NewValidation("unknown consumption reason").
			WithDetail("reason", req.Reason))
		return
	}
	if !req.Qty.IsPositive() {
		h.Error(c, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "qty"))
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	ctx := c.Request.Context()
	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	level, err := h.service.Consume(ctx, stock.ConsumeInput{
		Product:    p,
		Qty:        req.Qty,
		WholeUnits: req.WholeUnit,
		Reason:     reason,
		Note:       req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// GetLevel handles GET /inventory/levels/:productId
func (h *StockHandler) GetLevel(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	level, err := h.service.GetLevel(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockLevelResponse{
		ProductID:   level.ProductID.String(),
		ProductName: p.Name,
		Units:       level.Units,
		Doses:       level.Doses,
		TotalDoses:  p.DosageProfile().TotalDoses(level.Stock()),
	})
}

// ListLevels handles GET /inventory/levels
func (h *StockHandler) ListLevels(c *gin.Context) {
	filter := stock.LevelFilter{
		ExcludeZero: c.Query("excludeZero") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 100),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	levels, err := h.service.ListLevels(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      levels,
		TotalCount: len(levels),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// LowStock handles GET /inventory/low-stock
func (h *StockHandler) LowStock(c *gin.Context) {
	items, err := h.service.ListLowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Movements handles GET /inventory/movements
func (h *StockHandler) Movements(c *gin.Context) {
	var query dto.MovementListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := stock.MovementFilter{
		ProductID: OptionalID(query.ProductID),
		RefType:   query.RefType,
		FromDate:  OptionalTime(query.FromDate),
		ToDate:    OptionalTime(query.ToDate),
		Limit:     query.PageSize,
		Offset:    query.Offset(),
	}
	if query.Reason != "" {
		reason := stock.MovementReason(query.Reason)
		filter.Reason = &reason
	}

	movements, err := h.service.Movements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      movements,
		TotalCount: len(movements),
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
}
