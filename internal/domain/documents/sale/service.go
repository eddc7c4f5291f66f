package sale

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/tx"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/registers/stock"
	"vetpos/pkg/logger"
	"vetpos/pkg/numerator"
)

// Service orchestrates the checkout flow: stock consumption, price
// freezing, invoice creation and settlement happen in one transaction.
type Service struct {
	repo      Repository
	products  *product.Service
	owners    owner.Repository
	stock     *stock.Service
	billing   *billing.Service
	txManager tx.Manager
	numbers   numerator.Generator
	audit     billing.Auditor
}

// NewService creates a new sale service.
func NewService(
	repo Repository,
	products *product.Service,
	owners owner.Repository,
	stockSvc *stock.Service,
	billingSvc *billing.Service,
	txManager tx.Manager,
	numbers numerator.Generator,
	audit billing.Auditor,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		owners:    owners,
		stock:     stockSvc,
		billing:   billingSvc,
		txManager: txManager,
		numbers:   numbers,
		audit:     audit,
	}
}

// ItemInput is one requested line. ProductID nil means a free-text charge
// that carries no stock and must bring its own price.
type ItemInput struct {
	ProductID         *id.ID
	Description       string
	Qty               decimal.Decimal
	WholeUnit         bool
	UnitPriceOverride *types.Money
	Discount          types.Money
}

// CreateInput is the checkout request.
type CreateInput struct {
	Items []ItemInput

	OwnerID       *id.ID
	CustomerName  string
	CustomerPhone string
	PatientID     *id.ID

	Discount types.Money

	PaidUSD      types.Money
	PaidBs       types.Money
	CreditUsed   types.Money
	ExchangeRate types.Money
	MethodID     *id.ID
	Reference    string

	Notes string
}

// CreateResult is the checkout response.
type CreateResult struct {
	Sale            *Sale
	InvoiceID       id.ID
	PaymentsCreated int
	ChangeAmount    types.Money
}

// Create runs the whole checkout as one unit of work: per-item stock
// consumption, frozen-price lines, the mirroring invoice, one payment per
// funding source and the reconciliation pass. Business-rule violations are
// detected before any write; any later failure rolls the whole sale back.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	if in.Discount.IsNegative() {
		return nil, apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}
	if in.PaidUSD.IsNegative() || in.PaidBs.IsNegative() || in.CreditUsed.IsNegative() {
		return nil, apperror.NewValidation("payment amounts cannot be negative")
	}
	if in.PaidBs.IsPositive() && !in.ExchangeRate.IsPositive() {
		return nil, apperror.NewValidation("local-currency payment requires an exchange rate").
			WithDetail("field", "exchangeRate")
	}
	for i, item := range in.Items {
		if item.ProductID == nil && item.Description == "" {
			return nil, apperror.NewValidation("item requires a product or a description").
				WithDetail("lineNo", i+1)
		}
		if item.ProductID == nil && item.UnitPriceOverride == nil {
			return nil, apperror.NewValidation("free-text item requires a price").
				WithDetail("lineNo", i+1)
		}
		if !item.Qty.IsPositive() {
			return nil, apperror.NewValidation("quantity must be positive").
				WithDetail("lineNo", i+1)
		}
	}

	// Credit sufficiency is checked before any stock is touched; the
	// atomic decrement happens during settlement under the owner lock.
	if in.CreditUsed.IsPositive() {
		if in.OwnerID == nil {
			return nil, apperror.NewValidation("store credit requires a registered customer").
				WithDetail("field", "ownerId")
		}
		o, err := s.owners.GetByID(ctx, *in.OwnerID)
		if err != nil {
			return nil, err
		}
		if o.CreditBalance.LessThan(in.CreditUsed) {
			return nil, apperror.NewInsufficientCredit(o.ID.String(),
				in.CreditUsed.String(), o.CreditBalance.String())
		}
	}

	number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("SAL"), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate sale number: %w", err)
	}

	doc := New(appctx.GetClinicID(ctx))
	doc.Number = number
	doc.OwnerID = in.OwnerID
	doc.CustomerName = in.CustomerName
	doc.CustomerPhone = in.CustomerPhone
	doc.PatientID = in.PatientID
	doc.Discount = in.Discount
	doc.Notes = in.Notes
	doc.PaidUSD = in.PaidUSD
	doc.PaidBs = in.PaidBs
	doc.CreditUsed = in.CreditUsed
	doc.ExchangeRate = in.ExchangeRate
	doc.CreatedBy = appctx.GetUserID(ctx)

	result := &CreateResult{Sale: doc}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, item := range in.Items {
			if err := s.addItem(ctx, doc, item); err != nil {
				return err
			}
		}
		if err := doc.Validate(ctx); err != nil {
			return err
		}

		inv := billing.NewInvoice(doc.ClinicID, doc.Total)
		inv.OwnerID = doc.OwnerID
		inv.PatientID = doc.PatientID
		inv.MethodID = in.MethodID
		inv.Reference = in.Reference
		for _, line := range doc.Lines {
			inv.Lines = append(inv.Lines, billing.InvoiceLine{
				LineNo:      line.LineNo,
				Type:        billing.LineSale,
				RefType:     "sale",
				RefID:       &doc.ID,
				Description: line.Description,
				UnitCost:    line.UnitPrice,
				Qty:         line.Qty,
			})
		}
		if err := s.billing.CreateInvoice(ctx, inv); err != nil {
			return err
		}

		settled, err := s.billing.Settle(ctx, billing.SettleInput{
			InvoiceID:    inv.ID,
			AmountUSD:    in.PaidUSD,
			AmountBs:     in.PaidBs,
			CreditAmount: in.CreditUsed,
			ExchangeRate: in.ExchangeRate,
			MethodID:     in.MethodID,
			Reference:    in.Reference,
		})
		if err != nil {
			return err
		}

		change := doc.TotalPaid().Sub(doc.Total)
		if change.IsNegative() {
			change = types.Zero()
		}
		doc.ChangeAmount = change
		doc.InvoiceID = &inv.ID
		doc.Status = StatusCompleted

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save sale lines: %w", err)
		}

		result.InvoiceID = inv.ID
		result.PaymentsCreated = len(settled.Payments)
		result.ChangeAmount = change
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale created",
		"sale_id", doc.ID,
		"number", doc.Number,
		"total", doc.Total,
		"payments", result.PaymentsCreated,
	)
	return result, nil
}

// addItem resolves the product, consumes its stock and appends the frozen
// line. Free-text items skip the stock ledger entirely.
func (s *Service) addItem(ctx context.Context, doc *Sale, item ItemInput) error {
	if item.ProductID == nil {
		doc.AddLine(nil, item.Description, item.Qty, item.WholeUnit,
			*item.UnitPriceOverride, item.Discount)
		return nil
	}

	p, err := s.products.GetActive(ctx, *item.ProductID)
	if err != nil {
		return err
	}

	if _, err := s.stock.Consume(ctx, stock.ConsumeInput{
		Product:    p,
		Qty:        item.Qty,
		WholeUnits: item.WholeUnit,
		Reason:     stock.ReasonSale,
		RefType:    "sale",
		RefID:      &doc.ID,
	}); err != nil {
		return err
	}

	price := p.PriceFor(item.WholeUnit)
	if item.UnitPriceOverride != nil {
		price = *item.UnitPriceOverride
	}
	description := item.Description
	if description == "" {
		description = p.Name
	}
	doc.AddLine(&p.ID, description, item.Qty, item.WholeUnit, price, item.Discount)
	return nil
}

// Cancel reverses a sale: restocks every product line with carry
// normalization, restores consumed credit, cancels the invoice and its
// payments, and marks the sale cancelled. One unit of work.
func (s *Service) Cancel(ctx context.Context, saleID id.ID, reason string) (*Sale, *billing.Invoice, error) {
	var (
		doc *Sale
		inv *billing.Invoice
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if doc.Status == StatusCancelled {
			return apperror.NewInvalidState("sale is already cancelled").
				WithDetail("sale_id", saleID.String())
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get sale lines: %w", err)
		}
		doc.Lines = lines

		for _, line := range lines {
			if line.ProductID == nil {
				continue
			}
			p, err := s.products.GetByID(ctx, *line.ProductID)
			if err != nil {
				return err
			}
			if _, err := s.stock.Restock(ctx, stock.RestockInput{
				Product:    p,
				Qty:        line.Qty,
				WholeUnits: line.WholeUnit,
				Reason:     stock.ReasonReturn,
				RefType:    "sale",
				RefID:      &doc.ID,
				Note:       fmt.Sprintf("sale %s cancelled", doc.Number),
			}); err != nil {
				return err
			}
		}

		// Cancelling the invoice flips its payments and hands back any
		// store credit they consumed.
		if doc.InvoiceID != nil {
			inv, err = s.billing.CancelInvoice(ctx, *doc.InvoiceID,
				fmt.Sprintf("sale %s cancelled: %s", doc.Number, reason))
			if err != nil {
				return err
			}
		}

		doc.Cancel(appctx.GetUserID(ctx), reason, time.Now().UTC())
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		if s.audit != nil {
			if err := s.audit.Record(ctx, "sale", doc.ID, "cancel", map[string]any{
				"reason": reason,
				"number": doc.Number,
			}); err != nil {
				return fmt.Errorf("audit sale cancellation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "sale cancelled", "sale_id", saleID, "reason", reason)
	return doc, inv, nil
}

// GetByID returns a sale with its lines.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List returns sales matching the filter, without lines.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	return s.repo.List(ctx, filter)
}

// DayBucket aggregates one calendar day of sales.
type DayBucket struct {
	Day   string      `json:"day"`
	Count int         `json:"count"`
	Total types.Money `json:"total"`
}

// TopProduct is one entry of the best-sellers projection.
type TopProduct struct {
	ProductID   id.ID           `json:"productId"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	Total       types.Money     `json:"total"`
}

// Summary is the read-only sales projection for a date range.
type Summary struct {
	Count       int          `json:"count"`
	Total       types.Money  `json:"total"`
	TotalUSD    types.Money  `json:"totalUSD"`
	TotalBs     types.Money  `json:"totalBs"`
	TotalCredit types.Money  `json:"totalCredit"`
	ByDay       []DayBucket  `json:"byDay"`
	TopProducts []TopProduct `json:"topProducts"`
}

const topProductsLimit = 5

// Summarize aggregates non-cancelled sales in [from, to): counts and
// totals, per-day buckets and top products by quantity.
func (s *Service) Summarize(ctx context.Context, from, to time.Time) (*Summary, error) {
	sales, err := s.repo.List(ctx, ListFilter{FromDate: &from, ToDate: &to})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Total:       types.Zero(),
		TotalUSD:    types.Zero(),
		TotalBs:     types.Zero(),
		TotalCredit: types.Zero(),
	}
	days := make(map[string]*DayBucket)
	products := make(map[id.ID]*TopProduct)

	for _, doc := range sales {
		if doc.Status == StatusCancelled {
			continue
		}
		summary.Count++
		summary.Total = summary.Total.Add(doc.Total)
		summary.TotalUSD = summary.TotalUSD.Add(doc.PaidUSD)
		summary.TotalBs = summary.TotalBs.Add(doc.PaidBs)
		summary.TotalCredit = summary.TotalCredit.Add(doc.CreditUsed)

		day := doc.Date.Format("2006-01-02")
		bucket, ok := days[day]
		if !ok {
			bucket = &DayBucket{Day: day, Total: types.Zero()}
			days[day] = bucket
		}
		bucket.Count++
		bucket.Total = bucket.Total.Add(doc.Total)

		lines, err := s.repo.GetLines(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("get sale lines: %w", err)
		}
		for _, line := range lines {
			if line.ProductID == nil {
				continue
			}
			top, ok := products[*line.ProductID]
			if !ok {
				top = &TopProduct{
					ProductID:   *line.ProductID,
					Description: line.Description,
					Qty:         decimal.Zero,
					Total:       types.Zero(),
				}
				products[*line.ProductID] = top
			}
			top.Qty = top.Qty.Add(line.Qty)
			top.Total = top.Total.Add(line.Total)
		}
	}

	for _, bucket := range days {
		summary.ByDay = append(summary.ByDay, *bucket)
	}
	sort.Slice(summary.ByDay, func(i, j int) bool {
		return summary.ByDay[i].Day < summary.ByDay[j].Day
	})

	for _, top := range products {
		summary.TopProducts = append(summary.TopProducts, *top)
	}
	sort.Slice(summary.TopProducts, func(i, j int) bool {
		return summary.TopProducts[i].Qty.GreaterThan(summary.TopProducts[j].Qty)
	})
	if len(summary.TopProducts) > topProductsLimit {
		summary.TopProducts = summary.TopProducts[:topProductsLimit]
	}

	return summary, nil
}
