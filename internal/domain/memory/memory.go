// Package memory provides in-memory repository implementations used by
// service tests. Maps guarded by a mutex, deep copies on the way in and
// out so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/clinical"
	"vetpos/internal/domain/documents/sale"
	"vetpos/internal/domain/registers/stock"
	"vetpos/pkg/numerator"
)

// TxManager is a pass-through transaction manager: the closure runs
// directly against the in-memory store. Rollback is not simulated, so
// tests asserting untouched state rely on pre-mutation validation.
type TxManager struct{}

func (TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Numbers is a sequential in-memory numerator.
type Numbers struct {
	mu   sync.Mutex
	next map[string]int64
}

func NewNumbers() *Numbers {
	return &Numbers{next: make(map[string]int64)}
}

func (n *Numbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next[cfg.Prefix]++
	return fmt.Sprintf("%s-%s-%05d", cfg.Prefix, period.Format("2006"), n.next[cfg.Prefix]), nil
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*product.Product
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{items: make(map[id.ID]*product.Product)}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) FindByName(ctx context.Context, name string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("product", name)
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*product.Product, 0)
	for _, p := range r.items {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// OwnerRepo implements owner.Repository.
type OwnerRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*owner.Owner
}

func NewOwnerRepo() *OwnerRepo {
	return &OwnerRepo{items: make(map[id.ID]*owner.Owner)}
}

func (r *OwnerRepo) Create(ctx context.Context, o *owner.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.items[o.ID] = &cp
	return nil
}

func (r *OwnerRepo) Update(ctx context.Context, o *owner.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[o.ID]; !ok {
		return apperror.NewNotFound("owner", o.ID.String())
	}
	cp := *o
	r.items[o.ID] = &cp
	return nil
}

func (r *OwnerRepo) GetByID(ctx context.Context, ownerID id.ID) (*owner.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[ownerID]
	if !ok {
		return nil, apperror.NewNotFound("owner", ownerID.String())
	}
	cp := *o
	return &cp, nil
}

func (r *OwnerRepo) GetForUpdate(ctx context.Context, ownerID id.ID) (*owner.Owner, error) {
	return r.GetByID(ctx, ownerID)
}

func (r *OwnerRepo) AdjustCredit(ctx context.Context, ownerID id.ID, delta types.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[ownerID]
	if !ok {
		return apperror.NewNotFound("owner", ownerID.String())
	}
	next := o.CreditBalance.Add(delta)
	if next.IsNegative() {
		return apperror.NewInsufficientCredit(ownerID.String(),
			delta.Neg().String(), o.CreditBalance.String())
	}
	o.CreditBalance = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OwnerRepo) List(ctx context.Context, filter owner.ListFilter) ([]*owner.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*owner.Owner, 0)
	for _, o := range r.items {
		if filter.Search != "" && !strings.Contains(strings.ToLower(o.Name), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	mu        sync.RWMutex
	levels    map[id.ID]*stock.Level
	movements []*stock.Movement
}

func NewStockRepo() *StockRepo {
	return &StockRepo{levels: make(map[id.ID]*stock.Level)}
}

func (r *StockRepo) CreateLevel(ctx context.Context, level *stock.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.levels[level.ProductID]; ok {
		return apperror.NewConflict("stock level already exists")
	}
	cp := *level
	r.levels[level.ProductID] = &cp
	return nil
}

func (r *StockRepo) GetLevel(ctx context.Context, productID id.ID) (*stock.Level, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.levels[productID]
	if !ok {
		return nil, apperror.NewNotFound("stock level", productID.String())
	}
	cp := *l
	return &cp, nil
}

func (r *StockRepo) GetLevelForUpdate(ctx context.Context, productID id.ID) (*stock.Level, error) {
	return r.GetLevel(ctx, productID)
}

func (r *StockRepo) UpdateLevel(ctx context.Context, level *stock.Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.levels[level.ProductID]; !ok {
		return apperror.NewNotFound("stock level", level.ProductID.String())
	}
	cp := *level
	r.levels[level.ProductID] = &cp
	return nil
}

func (r *StockRepo) ListLevels(ctx context.Context, filter stock.LevelFilter) ([]*stock.Level, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*stock.Level, 0)
	for _, l := range r.levels {
		if len(filter.ProductIDs) > 0 && !containsID(filter.ProductIDs, l.ProductID) {
			continue
		}
		if filter.ExcludeZero && l.Units == 0 && l.Doses.IsZero() {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

func (r *StockRepo) CreateMovement(ctx context.Context, m *stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]*stock.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*stock.Movement, 0)
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Reason != nil && m.Reason != *filter.Reason {
			continue
		}
		if filter.RefType != "" && m.RefType != filter.RefType {
			continue
		}
		if filter.RefID != nil && (m.RefID == nil || *m.RefID != *filter.RefID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func containsID(ids []id.ID, target id.ID) bool {
	for _, v := range ids {
		if v == target {
			return true
		}
	}
	return false
}

// InvoiceRepo implements billing.InvoiceRepository.
type InvoiceRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*billing.Invoice
	lines map[id.ID][]billing.InvoiceLine
}

func NewInvoiceRepo() *InvoiceRepo {
	return &InvoiceRepo{
		items: make(map[id.ID]*billing.Invoice),
		lines: make(map[id.ID][]billing.InvoiceLine),
	}
}

func (r *InvoiceRepo) Create(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	cp.Lines = nil
	r.items[inv.ID] = &cp
	return nil
}

func (r *InvoiceRepo) Update(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[inv.ID]; !ok {
		return apperror.NewNotFound("invoice", inv.ID.String())
	}
	cp := *inv
	cp.Lines = nil
	r.items[inv.ID] = &cp
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.items[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	cp := *inv
	return &cp, nil
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*billing.Invoice, error) {
	return r.GetByID(ctx, invoiceID)
}

func (r *InvoiceRepo) SaveLines(ctx context.Context, invoiceID id.ID, lines []billing.InvoiceLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[invoiceID] = append([]billing.InvoiceLine(nil), lines...)
	return nil
}

func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]billing.InvoiceLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]billing.InvoiceLine(nil), r.lines[invoiceID]...), nil
}

func (r *InvoiceRepo) List(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*billing.Invoice, 0)
	for _, inv := range r.items {
		if filter.OwnerID != nil && (inv.OwnerID == nil || *inv.OwnerID != *filter.OwnerID) {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// PaymentRepo implements billing.PaymentRepository.
type PaymentRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*billing.Payment
	order []id.ID
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{items: make(map[id.ID]*billing.Payment)}
}

func (r *PaymentRepo) Create(ctx context.Context, p *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	r.order = append(r.order, p.ID)
	return nil
}

func (r *PaymentRepo) Update(ctx context.Context, p *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return apperror.NewNotFound("payment", p.ID.String())
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*billing.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("payment", paymentID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*billing.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*billing.Payment, 0)
	for _, pid := range r.order {
		p := r.items[pid]
		if p.InvoiceID != invoiceID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*sale.Sale
	lines map[id.ID][]sale.Line
}

func NewSaleRepo() *SaleRepo {
	return &SaleRepo{
		items: make(map[id.ID]*sale.Sale),
		lines: make(map[id.ID][]sale.Line),
	}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.Lines = nil
	r.items[s.ID] = &cp
	return nil
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	cp := *s
	cp.Lines = nil
	r.items[s.ID] = &cp
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	cp := *s
	return &cp, nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[saleID] = append([]sale.Line(nil), lines...)
	return nil
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]sale.Line(nil), r.lines[saleID]...), nil
}

func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*sale.Sale, 0)
	for _, s := range r.items {
		if filter.OwnerID != nil && (s.OwnerID == nil || *s.OwnerID != *filter.OwnerID) {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.FromDate != nil && s.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && !s.Date.Before(*filter.ToDate) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ClinicalRepo implements clinical.Repository.
type ClinicalRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*clinical.Event
	order []id.ID
}

func NewClinicalRepo() *ClinicalRepo {
	return &ClinicalRepo{items: make(map[id.ID]*clinical.Event)}
}

func (r *ClinicalRepo) Create(ctx context.Context, e *clinical.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.items[e.ID] = &cp
	r.order = append(r.order, e.ID)
	return nil
}

func (r *ClinicalRepo) GetByID(ctx context.Context, eventID id.ID) (*clinical.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[eventID]
	if !ok {
		return nil, apperror.NewNotFound("clinical event", eventID.String())
	}
	cp := *e
	return &cp, nil
}

func (r *ClinicalRepo) List(ctx context.Context, filter clinical.ListFilter) ([]*clinical.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*clinical.Event, 0)
	for _, eid := range r.order {
		e := r.items[eid]
		if filter.Type != nil && e.Type != *filter.Type {
			continue
		}
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		if filter.PatientID != nil && (e.PatientID == nil || *e.PatientID != *filter.PatientID) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
