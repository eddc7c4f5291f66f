package clinical_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/clinical"
	"vetpos/internal/domain/memory"
	"vetpos/internal/domain/registers/stock"
)

func testContext() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "vet-1",
		ClinicID: "clinic-1",
	})
}

type fixture struct {
	products   *memory.ProductRepo
	events     *memory.ClinicalRepo
	stockSvc   *stock.Service
	billingSvc *billing.Service
	svc        *clinical.Service
}

func newFixture() *fixture {
	f := &fixture{
		products: memory.NewProductRepo(),
		events:   memory.NewClinicalRepo(),
	}
	tm := memory.TxManager{}
	stockRepo := memory.NewStockRepo()
	productSvc := product.NewService(f.products)
	f.stockSvc = stock.NewService(stockRepo, f.products, tm)
	f.billingSvc = billing.NewService(memory.NewInvoiceRepo(), memory.NewPaymentRepo(),
		memory.NewOwnerRepo(), tm, memory.NewNumbers(), nil)
	f.svc = clinical.NewService(f.events, productSvc, f.stockSvc, f.billingSvc, tm)
	return f
}

func (f *fixture) addProduct(t *testing.T, name string, dosesPerUnit, units int64) *product.Product {
	t.Helper()
	ctx := testContext()
	p := product.New("clinic-1", name, types.MustMoney("40"), dosesPerUnit)
	require.NoError(t, f.products.Create(ctx, p))
	_, err := f.stockSvc.Initialize(ctx, stock.InitializeInput{ProductID: p.ID, Units: units})
	require.NoError(t, err)
	return p
}

func TestConsumeForEvent(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Parvo vaccine", 10, 2)

	e, err := f.svc.ConsumeForEvent(ctx, clinical.ConsumeInput{
		Type:      clinical.EventVaccination,
		ProductID: p.ID,
		Qty:       decimal.NewFromInt(1),
		Notes:     "annual booster",
	})
	require.NoError(t, err)
	assert.Equal(t, "vet-1", e.PerformedBy)

	// One dose at 40/10.
	assert.True(t, e.Charge.Equal(types.MustMoney("4")))

	// The movement is tagged with the event.
	movements, err := f.stockSvc.Movements(ctx, stock.MovementFilter{
		ProductID: &p.ID,
		RefType:   "vaccination",
	})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.NotNil(t, movements[0].RefID)
	assert.Equal(t, e.ID, *movements[0].RefID)

	// The charge sits on a pending invoice.
	require.NotNil(t, e.InvoiceID)
	inv, err := f.billingSvc.GetInvoice(ctx, *e.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, inv.Status)
	assert.True(t, inv.Total.Equal(types.MustMoney("4")))
}

func TestConsumeForEvent_InsufficientStockAbortsEvent(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Anesthetic", 1, 1)

	_, err := f.svc.ConsumeForEvent(ctx, clinical.ConsumeInput{
		Type:      clinical.EventTreatment,
		ProductID: p.ID,
		Qty:       decimal.NewFromInt(2),
		WholeUnit: true,
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	events, err := f.svc.List(ctx, clinical.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)

	level, err := f.stockSvc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Units)
}

func TestConsumeForEvent_ChargeOverride(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Dewormer", 5, 1)

	override := types.MustMoney("10")
	e, err := f.svc.ConsumeForEvent(ctx, clinical.ConsumeInput{
		Type:           clinical.EventDeworming,
		ProductID:      p.ID,
		Qty:            decimal.NewFromInt(2),
		ChargeOverride: &override,
	})
	require.NoError(t, err)
	assert.True(t, e.Charge.Equal(override))
}

func TestConsumeForEvent_UnknownType(t *testing.T) {
	f := newFixture()
	p := f.addProduct(t, "Vitamin", 1, 1)

	_, err := f.svc.ConsumeForEvent(testContext(), clinical.ConsumeInput{
		Type:      clinical.EventType("surgery"),
		ProductID: p.ID,
		Qty:       decimal.NewFromInt(1),
		WholeUnit: true,
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
