package handlers

import (
	"github.com/gin-gonic/gin"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/domain/clinical"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// ClinicalHandler handles HTTP requests for clinical stock consumption.
type ClinicalHandler struct {
	*BaseHandler
	service *clinical.Service
}

// NewClinicalHandler creates a new clinical handler.
func NewClinicalHandler(base *BaseHandler, service *clinical.Service) *ClinicalHandler {
	return &ClinicalHandler{BaseHandler: base, service: service}
}

// Consume handles POST /clinical/consume
func (h *ClinicalHandler) Consume(c *gin.Context) {
	var req dto.ClinicalConsumeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	e, err := h.service.ConsumeForEvent(c.Request.Context(), clinical.ConsumeInput{
		Type:           clinical.EventType(req.Type),
		ProductID:      productID,
		Qty:            req.Qty,
		WholeUnit:      req.WholeUnit,
		PatientID:      OptionalID(req.PatientID),
		OwnerID:        OptionalID(req.OwnerID),
		ChargeOverride: req.Charge,
		Notes:          req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// Get handles GET /clinical/events/:id
func (h *ClinicalHandler) Get(c *gin.Context) {
	eventID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	e, err := h.service.GetByID(c.Request.Context(), eventID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// List handles GET /clinical/events
func (h *ClinicalHandler) List(c *gin.Context) {
	var query dto.ClinicalListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := clinical.ListFilter{
		PatientID: OptionalID(query.PatientID),
		ProductID: OptionalID(query.ProductID),
		FromDate:  OptionalTime(query.FromDate),
		ToDate:    OptionalTime(query.ToDate),
		Limit:     query.PageSize,
		Offset:    query.Offset(),
	}
	if query.Type != "" {
		eventType := clinical.EventType(query.Type)
		filter.Type = &eventType
	}

	events, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      events,
		TotalCount: len(events),
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
}
