package stock_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/memory"
	"vetpos/internal/domain/registers/stock"
)

func testContext() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "vet-1",
		ClinicID: "clinic-1",
	})
}

type stockFixture struct {
	products *memory.ProductRepo
	repo     *memory.StockRepo
	svc      *stock.Service
}

func newStockFixture() *stockFixture {
	products := memory.NewProductRepo()
	repo := memory.NewStockRepo()
	return &stockFixture{
		products: products,
		repo:     repo,
		svc:      stock.NewService(repo, products, memory.TxManager{}),
	}
}

func (f *stockFixture) addProduct(t *testing.T, name string, dosesPerUnit int64, divisible bool) *product.Product {
	t.Helper()
	p := product.New("clinic-1", name, types.MustMoney("10"), dosesPerUnit)
	p.Divisible = divisible
	require.NoError(t, f.products.Create(testContext(), p))
	return p
}

func TestInitialize(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()
	p := f.addProduct(t, "Vaccine", 10, true)

	level, err := f.svc.Initialize(ctx, stock.InitializeInput{
		ProductID: p.ID,
		Units:     2,
		Doses:     decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), level.Units)
	assert.True(t, level.Doses.Equal(decimal.NewFromInt(3)))

	// Second initialization is a conflict.
	_, err = f.svc.Initialize(ctx, stock.InitializeInput{ProductID: p.ID, Units: 1})
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	// The seed movement is on the ledger.
	movements, err := f.svc.Movements(ctx, stock.MovementFilter{ProductID: &p.ID})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, stock.ReasonInitialStock, movements[0].Reason)
	assert.Equal(t, int64(2), movements[0].ResultUnits)
}

func TestInitialize_RejectsDoseOverflow(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()
	p := f.addProduct(t, "Vaccine", 10, true)

	_, err := f.svc.Initialize(ctx, stock.InitializeInput{
		ProductID: p.ID,
		Units:     1,
		Doses:     decimal.NewFromInt(10), // must stay below dosesPerUnit
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestConsume_DosesOpensUnit(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()
	p := f.addProduct(t, "Vaccine", 10, true)

	_, err := f.svc.Initialize(ctx, stock.InitializeInput{
		ProductID: p.ID, Units: 2, Doses: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	level, err := f.svc.Consume(ctx, stock.ConsumeInput{
		Product: p,
		Qty:     decimal.NewFromInt(5),
		Reason:  stock.ReasonSale,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Units)
	assert.True(t, level.Doses.Equal(decimal.NewFromInt(8)))
}

func TestConsume_InsufficientLeavesStockUnchanged(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()
	p := f.addProduct(t, "Dewormer", 5, true)

	_, err := f.svc.Initialize(ctx, stock.InitializeInput{
		ProductID: p.ID, Units: 1, Doses: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	// 7 doses available; 8 must fail before any write.
	_, err = f.svc.Consume(ctx, stock.ConsumeInput{
		Product: p,
		Qty:     decimal.NewFromInt(8),
		Reason:  stock.ReasonSale,
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	level, err := f.svc.GetLevel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), level.Units)
	assert.True(t, level.Doses.Equal(decimal.NewFromInt(2)))

	// Exactly the last dose succeeds.
	level, err = f.svc.Consume(ctx, stock.ConsumeInput{
		Product: p,
		Qty:     decimal.NewFromInt(7),
		Reason:  stock.ReasonSale,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Units)
	assert.True(t, level.Doses.IsZero())
}

func TestRestock_NormalizesCarry(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()
	p := f.addProduct(t, "Antibiotic", 10, true)

	_, err := f.svc.Initialize(ctx, stock.InitializeInput{
		ProductID: p.ID, Units: 1, Doses: decimal.NewFromInt(8),
	})
	require.NoError(t, err)

	level, err := f.svc.Restock(ctx, stock.RestockInput{
		Product: p,
		Qty:     decimal.NewFromInt(25),
		Reason:  stock.ReasonReturn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), level.Units)
	assert.True(t, level.Doses.Equal(decimal.NewFromInt(3)))
}

func TestListLowStock(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()

	low := f.addProduct(t, "Low", 10, true)
	low.MinStockDoses = types.NewDoses(15)
	require.NoError(t, f.products.Update(ctx, low))

	ok := f.addProduct(t, "Plenty", 10, true)
	ok.MinStockDoses = types.NewDoses(5)
	require.NoError(t, f.products.Update(ctx, ok))

	_, err := f.svc.Initialize(ctx, stock.InitializeInput{ProductID: low.ID, Units: 1, Doses: decimal.NewFromInt(2)})
	require.NoError(t, err)
	_, err = f.svc.Initialize(ctx, stock.InitializeInput{ProductID: ok.ID, Units: 3})
	require.NoError(t, err)

	items, err := f.svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].Product.ID)
}

func TestConsume_MovementCarriesSnapshot(t *testing.T) {
	ctx := testContext()
	f := newStockFixture()
	p := f.addProduct(t, "Vaccine", 10, true)

	_, err := f.svc.Initialize(ctx, stock.InitializeInput{ProductID: p.ID, Units: 3})
	require.NoError(t, err)

	_, err = f.svc.Consume(ctx, stock.ConsumeInput{
		Product:    p,
		Qty:        decimal.NewFromInt(1),
		WholeUnits: true,
		Reason:     stock.ReasonClinicalUse,
		RefType:    "treatment",
	})
	require.NoError(t, err)

	reason := stock.ReasonClinicalUse
	movements, err := f.svc.Movements(ctx, stock.MovementFilter{ProductID: &p.ID, Reason: &reason})
	require.NoError(t, err)
	require.Len(t, movements, 1)

	m := movements[0]
	assert.Equal(t, stock.MovementOutbound, m.Type)
	assert.Equal(t, int64(1), m.QtyUnits)
	assert.Equal(t, int64(2), m.ResultUnits)
	assert.Equal(t, "treatment", m.RefType)
	assert.Equal(t, "vet-1", m.Actor)
}
