package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles HTTP requests for the Product catalog.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	p := product.New(appctx.GetClinicID(ctx), req.Name, req.UnitPrice, req.DosesPerUnit)
	p.DosePrice = req.DosePrice
	p.UnitLabel = req.UnitLabel
	p.DoseLabel = req.DoseLabel
	if req.Divisible != nil {
		p.Divisible = *req.Divisible
	}
	if req.MinStockDoses != nil {
		p.MinStockDoses = *req.MinStockDoses
	}

	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID)
}

// Get handles GET /catalog/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update handles PUT /catalog/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.UnitPrice != nil {
		p.UnitPrice = *req.UnitPrice
	}
	if req.DosePrice != nil {
		p.DosePrice = req.DosePrice
	}
	if req.UnitLabel != nil {
		p.UnitLabel = *req.UnitLabel
	}
	if req.DoseLabel != nil {
		p.DoseLabel = *req.DoseLabel
	}
	if req.MinStockDoses != nil {
		p.MinStockDoses = *req.MinStockDoses
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /catalog/products
func (h *ProductHandler) List(c *gin.Context) {
	var query dto.ProductListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	products, err := h.service.List(c.Request.Context(), product.ListFilter{
		Search:     query.Search,
		ActiveOnly: query.ActiveOnly,
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      products,
		TotalCount: len(products),
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
}

// Deactivate handles POST /catalog/products/:id/deactivate
func (h *ProductHandler) Deactivate(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "product deactivated")
}
