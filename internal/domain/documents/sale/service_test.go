package sale_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/documents/sale"
	"vetpos/internal/domain/memory"
	"vetpos/internal/domain/registers/stock"
)

func testContext() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "cashier-1",
		ClinicID: "clinic-1",
	})
}

type fixture struct {
	products *memory.ProductRepo
	owners   *memory.OwnerRepo
	stock    *memory.StockRepo
	invoices *memory.InvoiceRepo
	payments *memory.PaymentRepo
	sales    *memory.SaleRepo

	productSvc *product.Service
	stockSvc   *stock.Service
	billingSvc *billing.Service
	svc        *sale.Service
}

func newFixture() *fixture {
	f := &fixture{
		products: memory.NewProductRepo(),
		owners:   memory.NewOwnerRepo(),
		stock:    memory.NewStockRepo(),
		invoices: memory.NewInvoiceRepo(),
		payments: memory.NewPaymentRepo(),
		sales:    memory.NewSaleRepo(),
	}
	tm := memory.TxManager{}
	numbers := memory.NewNumbers()

	f.productSvc = product.NewService(f.products)
	f.stockSvc = stock.NewService(f.stock, f.products, tm)
	f.billingSvc = billing.NewService(f.invoices, f.payments, f.owners, tm, numbers, nil)
	f.svc = sale.NewService(f.sales, f.productSvc, f.owners, f.stockSvc, f.billingSvc, tm, numbers, nil)
	return f
}

func (f *fixture) addProduct(t *testing.T, name, unitPrice string, dosesPerUnit int64, units int64, doses int64) *product.Product {
	t.Helper()
	ctx := testContext()
	p := product.New("clinic-1", name, types.MustMoney(unitPrice), dosesPerUnit)
	require.NoError(t, f.products.Create(ctx, p))
	_, err := f.stockSvc.Initialize(ctx, stock.InitializeInput{
		ProductID: p.ID,
		Units:     units,
		Doses:     decimal.NewFromInt(doses),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) addOwner(t *testing.T, credit string) *owner.Owner {
	t.Helper()
	o := owner.New("clinic-1", "Carlos Gomez")
	o.CreditBalance = types.MustMoney(credit)
	require.NoError(t, f.owners.Create(testContext(), o))
	return o
}

func TestCreate_FullCheckout(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Rabies vaccine", "20", 10, 2, 3)

	res, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(5), // doses
		}},
		CustomerName: "Walk-in",
		PaidUSD:      types.MustMoney("10"),
	})
	require.NoError(t, err)

	doc := res.Sale
	assert.Equal(t, sale.StatusCompleted, doc.Status)
	assert.Contains(t, doc.Number, "SAL-")
	require.Len(t, doc.Lines, 1)

	// 5 doses at 20/10 = 2 per dose.
	assert.True(t, doc.Lines[0].UnitPrice.Equal(types.MustMoney("2")))
	assert.True(t, doc.Total.Equal(types.MustMoney("10")))
	assert.True(t, res.ChangeAmount.IsZero())
	assert.Equal(t, 1, res.PaymentsCreated)

	// Stock moved 2u3d -> 1u8d.
	level, err := f.stockSvc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Units)
	assert.True(t, level.Doses.Equal(decimal.NewFromInt(8)))

	// The invoice mirrors the sale and is settled.
	inv, err := f.billingSvc.GetInvoice(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, inv.Status)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "Rabies vaccine", inv.Lines[0].Description)
}

func TestCreate_ChangeAmount(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Food bag", "15", 1, 5, 0)

	res, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(1),
			WholeUnit: true,
		}},
		PaidUSD: types.MustMoney("20"),
	})
	require.NoError(t, err)
	assert.True(t, res.ChangeAmount.Equal(types.MustMoney("5")))
}

func TestCreate_EmptyItems(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(testContext(), sale.CreateInput{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreate_FreeTextLine(t *testing.T) {
	ctx := testContext()
	f := newFixture()

	price := types.MustMoney("12")
	res, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			Description:       "Nail trim",
			Qty:               decimal.NewFromInt(1),
			UnitPriceOverride: &price,
		}},
		PaidUSD: types.MustMoney("12"),
	})
	require.NoError(t, err)
	assert.True(t, res.Sale.Total.Equal(price))

	// Free-text without a price is rejected.
	_, err = f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			Description: "Nail trim",
			Qty:         decimal.NewFromInt(1),
		}},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreate_InsufficientCreditLeavesStateUntouched(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Dewormer", "10", 1, 3, 0)
	o := f.addOwner(t, "50")

	_, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(1),
			WholeUnit: true,
		}},
		OwnerID:    &o.ID,
		CreditUsed: types.MustMoney("70"),
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientCredit))

	// No sale, no invoice, no stock or credit mutation.
	sales, err := f.svc.List(ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, sales)

	invoices, err := f.invoices.List(ctx, billing.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)

	level, err := f.stockSvc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), level.Units)

	got, err := f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(types.MustMoney("50")))
}

func TestCreate_LastUnitBoundary(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Serum", "30", 1, 1, 0)

	// One more than available fails and leaves stock unchanged.
	_, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(2),
			WholeUnit: true,
		}},
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	level, err := f.stockSvc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Units)

	// Exactly the last unit succeeds.
	_, err = f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(1),
			WholeUnit: true,
		}},
		PaidUSD: types.MustMoney("30"),
	})
	require.NoError(t, err)

	level, err = f.stockSvc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Units)
}

func TestCancel_RoundTripRestoresEverything(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Antibiotic", "20", 10, 2, 3)
	o := f.addOwner(t, "50")

	res, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(5),
		}},
		OwnerID:    &o.ID,
		CreditUsed: types.MustMoney("10"),
	})
	require.NoError(t, err)

	// Credit was consumed and stock drawn down.
	got, err := f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(types.MustMoney("40")))

	cancelled, cancelledInv, err := f.svc.Cancel(ctx, res.Sale.ID, "customer returned items")
	require.NoError(t, err)
	assert.Equal(t, sale.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer returned items", cancelled.CancelledReason)
	require.NotNil(t, cancelledInv)
	assert.Equal(t, billing.StatusCancelled, cancelledInv.Status)

	// Stock back to the pre-sale pair.
	level, err := f.stockSvc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), level.Units)
	assert.True(t, level.Doses.Equal(decimal.NewFromInt(3)))

	// Credit restored, invoice cancelled with its payments.
	got, err = f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(types.MustMoney("50")))

	inv, err := f.billingSvc.GetInvoice(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, inv.Status)

	payments, err := f.billingSvc.ListPayments(ctx, res.InvoiceID)
	require.NoError(t, err)
	for _, payment := range payments {
		assert.Equal(t, billing.PaymentCancelled, payment.Status)
	}

	// Return movements reference the sale.
	reason := stock.ReasonReturn
	movements, err := f.stockSvc.Movements(ctx, stock.MovementFilter{
		ProductID: &p.ID,
		Reason:    &reason,
	})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.NotNil(t, movements[0].RefID)
	assert.Equal(t, res.Sale.ID, *movements[0].RefID)

	// A second cancellation is rejected.
	_, _, err = f.svc.Cancel(ctx, res.Sale.ID, "again")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestSummarize(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Vitamins", "5", 1, 10, 0)

	var cancelledID id.ID
	for i := 0; i < 3; i++ {
		res, err := f.svc.Create(ctx, sale.CreateInput{
			Items: []sale.ItemInput{{
				ProductID: &p.ID,
				Qty:       decimal.NewFromInt(1),
				WholeUnit: true,
			}},
			PaidUSD: types.MustMoney("5"),
		})
		require.NoError(t, err)
		cancelledID = res.Sale.ID
	}
	_, _, err := f.svc.Cancel(ctx, cancelledID, "mistake")
	require.NoError(t, err)

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)
	summary, err := f.svc.Summarize(ctx, from, to)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.Total.Equal(types.MustMoney("10")))
	assert.True(t, summary.TotalUSD.Equal(types.MustMoney("10")))
	require.Len(t, summary.ByDay, 1)
	assert.Equal(t, 2, summary.ByDay[0].Count)
	require.Len(t, summary.TopProducts, 1)
	assert.Equal(t, p.ID, summary.TopProducts[0].ProductID)
	assert.True(t, summary.TopProducts[0].Qty.Equal(decimal.NewFromInt(2)))
}

func TestCreate_InactiveProduct(t *testing.T) {
	ctx := testContext()
	f := newFixture()
	p := f.addProduct(t, "Retired", "10", 1, 5, 0)
	require.NoError(t, f.productSvc.Deactivate(ctx, p.ID))

	_, err := f.svc.Create(ctx, sale.CreateInput{
		Items: []sale.ItemInput{{
			ProductID: &p.ID,
			Qty:       decimal.NewFromInt(1),
			WholeUnit: true,
		}},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}
