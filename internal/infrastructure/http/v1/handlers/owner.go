package handlers

import (
	"github.com/gin-gonic/gin"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// OwnerHandler handles HTTP requests for the Owner catalog.
type OwnerHandler struct {
	*BaseHandler
	service *owner.Service
}

// NewOwnerHandler creates a new owner handler.
func NewOwnerHandler(base *BaseHandler, service *owner.Service) *OwnerHandler {
	return &OwnerHandler{BaseHandler: base, service: service}
}

// Create handles POST /catalog/owners
func (h *OwnerHandler) Create(c *gin.Context) {
	var req dto.CreateOwnerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	o := owner.New(appctx.GetClinicID(ctx), req.Name)
	o.Phone = req.Phone
	o.Email = req.Email

	if err := h.service.Create(ctx, o); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o.ID)
}

// Get handles GET /catalog/owners/:id
func (h *OwnerHandler) Get(c *gin.Context) {
	ownerID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.service.GetByID(c.Request.Context(), ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Update handles PUT /catalog/owners/:id
func (h *OwnerHandler) Update(c *gin.Context) {
	ownerID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOwnerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	o, err := h.service.GetByID(ctx, ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.Phone != nil {
		o.Phone = *req.Phone
	}
	if req.Email != nil {
		o.Email = *req.Email
	}

	if err := h.service.Update(ctx, o); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// List handles GET /catalog/owners
func (h *OwnerHandler) List(c *gin.Context) {
	var query dto.OwnerListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	owners, err := h.service.List(c.Request.Context(), owner.ListFilter{
		Search: query.Search,
		Limit:  query.PageSize,
		Offset: query.Offset(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      owners,
		TotalCount: len(owners),
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
}

// AddCredit handles POST /catalog/owners/:id/credit
func (h *OwnerHandler) AddCredit(c *gin.Context) {
	ownerID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddCreditRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		h.Error(c, apperror.NewValidation("credit amount must be positive").
			WithDetail("field", "amount"))
		return
	}

	ctx := c.Request.Context()
	if err := h.service.AddCredit(ctx, ownerID, req.Amount); err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.GetByID(ctx, ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}
