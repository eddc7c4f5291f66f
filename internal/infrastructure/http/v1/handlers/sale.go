package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/documents/sale"
	"vetpos/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for the point-of-sale flow.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

func moneyOrZero(m *types.Money) types.Money {
	if m == nil {
		return types.Zero()
	}
	return *m
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in := sale.CreateInput{
		OwnerID:       OptionalID(req.OwnerID),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PatientID:     OptionalID(req.PatientID),
		Discount:      moneyOrZero(req.Discount),
		PaidUSD:       moneyOrZero(req.PaidUSD),
		PaidBs:        moneyOrZero(req.PaidBs),
		CreditUsed:    moneyOrZero(req.CreditUsed),
		ExchangeRate:  moneyOrZero(req.ExchangeRate),
		MethodID:      OptionalID(req.MethodID),
		Reference:     req.Reference,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, sale.ItemInput{
			ProductID:         OptionalID(item.ProductID),
			Description:       item.Description,
			Qty:               item.Qty,
			WholeUnit:         item.WholeUnit,
			UnitPriceOverride: item.UnitPrice,
			Discount:          moneyOrZero(item.Discount),
		})
	}

	result, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"sale":            result.Sale,
		"invoiceId":       result.InvoiceID.String(),
		"paymentsCreated": result.PaymentsCreated,
		"changeAmount":    result.ChangeAmount,
	})
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	var query dto.SaleListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := sale.ListFilter{
		OwnerID:  OptionalID(query.OwnerID),
		FromDate: OptionalTime(query.FromDate),
		ToDate:   OptionalTime(query.ToDate),
		Limit:    query.PageSize,
		Offset:   query.Offset(),
	}
	if query.Status != "" {
		status := sale.Status(query.Status)
		filter.Status = &status
	}

	sales, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      sales,
		TotalCount: len(sales),
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
}

// Cancel handles PATCH /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CancelSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, inv, err := h.service.Cancel(c.Request.Context(), saleID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{
		"sale":    doc,
		"invoice": inv,
	})
}

// Summary handles GET /sales/summary
func (h *SaleHandler) Summary(c *gin.Context) {
	var query dto.SummaryQuery
	if !h.BindQuery(c, &query) {
		return
	}

	// Default window is the current day.
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	var err error
	if query.FromDate != "" {
		from, err = time.Parse(time.RFC3339, query.FromDate)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid fromDate format, expected RFC3339"))
			return
		}
	}
	if query.ToDate != "" {
		to, err = time.Parse(time.RFC3339, query.ToDate)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid toDate format, expected RFC3339"))
			return
		}
	}

	summary, err := h.service.Summarize(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}
