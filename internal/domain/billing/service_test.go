package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "vetpos/internal/core/context"
	"vetpos/internal/core/apperror"
	"vetpos/internal/core/id"
	"vetpos/internal/core/types"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/domain/memory"
)

func testContext() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "cashier-1",
		ClinicID: "clinic-1",
	})
}

type billingFixture struct {
	invoices *memory.InvoiceRepo
	payments *memory.PaymentRepo
	owners   *memory.OwnerRepo
	svc      *billing.Service
}

func newBillingFixture() *billingFixture {
	invoices := memory.NewInvoiceRepo()
	payments := memory.NewPaymentRepo()
	owners := memory.NewOwnerRepo()
	return &billingFixture{
		invoices: invoices,
		payments: payments,
		owners:   owners,
		svc: billing.NewService(invoices, payments, owners,
			memory.TxManager{}, memory.NewNumbers(), nil),
	}
}

func (f *billingFixture) createInvoice(t *testing.T, total string) *billing.Invoice {
	t.Helper()
	inv := billing.NewInvoice("clinic-1", types.MustMoney(total))
	inv.Lines = []billing.InvoiceLine{{
		LineNo:      1,
		Type:        billing.LineSale,
		Description: "Consultation",
		UnitCost:    types.MustMoney(total),
		Qty:         types.MustMoney("1"),
	}}
	require.NoError(t, f.svc.CreateInvoice(testContext(), inv))
	return inv
}

func (f *billingFixture) createOwner(t *testing.T, credit string) *owner.Owner {
	t.Helper()
	o := owner.New("clinic-1", "Maria Perez")
	o.CreditBalance = types.MustMoney(credit)
	require.NoError(t, f.owners.Create(testContext(), o))
	return o
}

func methodID() *id.ID {
	m := id.New()
	return &m
}

func TestCreateInvoice_AssignsNumber(t *testing.T) {
	f := newBillingFixture()
	inv := f.createInvoice(t, "100")

	assert.Equal(t, billing.StatusPending, inv.Status)
	assert.Contains(t, inv.Number, "INV-")
}

func TestTwoCurrencySettlement(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	inv := f.createInvoice(t, "100")

	// 60 USD first.
	res, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("60"),
		Currency:  billing.CurrencyUSD,
		MethodID:  methodID(),
	})
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPartial, res.Invoice.Status)
	assert.True(t, res.Invoice.AmountPaid.Equal(types.MustMoney("60")))

	// 4000 local at rate 100 covers the remaining 40.
	res, err = f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID:    inv.ID,
		Amount:       types.MustMoney("4000"),
		Currency:     billing.CurrencyBs,
		ExchangeRate: types.MustMoney("100"),
		MethodID:     methodID(),
	})
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, res.Invoice.Status)
	assert.True(t, res.Invoice.AmountPaid.Equal(types.MustMoney("100")))
	assert.True(t, res.Invoice.AmountPaidUSD.Equal(types.MustMoney("60")))
	assert.True(t, res.Invoice.AmountPaidBs.Equal(types.MustMoney("4000")))
}

func TestCancelPayment_Recomputes(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	inv := f.createInvoice(t, "100")

	res, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("60"),
		Currency:  billing.CurrencyUSD,
		MethodID:  methodID(),
	})
	require.NoError(t, err)
	usdPayment := res.Payments[0]

	_, err = f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID:    inv.ID,
		Amount:       types.MustMoney("4000"),
		Currency:     billing.CurrencyBs,
		ExchangeRate: types.MustMoney("100"),
		MethodID:     methodID(),
	})
	require.NoError(t, err)

	// Cancelling the USD entry drops the invoice back to partial at 40.
	p, updated, err := f.svc.CancelPayment(ctx, usdPayment.ID, "cashier error")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentCancelled, p.Status)
	assert.Equal(t, "cashier error", p.CancelledReason)
	assert.True(t, updated.AmountPaid.Equal(types.MustMoney("40")))
	assert.Equal(t, billing.StatusPartial, updated.Status)

	// Double cancellation is rejected.
	_, _, err = f.svc.CancelPayment(ctx, usdPayment.ID, "again")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestRecalculate_Idempotent(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	inv := f.createInvoice(t, "100")

	_, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("30"),
		Currency:  billing.CurrencyUSD,
		MethodID:  methodID(),
	})
	require.NoError(t, err)

	first, err := f.svc.Recalculate(ctx, inv.ID)
	require.NoError(t, err)
	second, err := f.svc.Recalculate(ctx, inv.ID)
	require.NoError(t, err)

	assert.True(t, first.AmountPaid.Equal(second.AmountPaid))
	assert.Equal(t, first.Status, second.Status)
}

func TestCreatePayment_Validation(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	inv := f.createInvoice(t, "100")

	// Neither cash nor credit.
	_, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{InvoiceID: inv.ID})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	// Cash without a method.
	_, err = f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("10"),
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	// Local currency without a rate.
	_, err = f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("10"),
		Currency:  billing.CurrencyBs,
		MethodID:  methodID(),
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCreatePayment_RejectsClosedInvoice(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	inv := f.createInvoice(t, "50")

	_, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("50"),
		Currency:  billing.CurrencyUSD,
		MethodID:  methodID(),
	})
	require.NoError(t, err)

	_, err = f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID: inv.ID,
		Amount:    types.MustMoney("5"),
		Currency:  billing.CurrencyUSD,
		MethodID:  methodID(),
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestCreditPayment_SpendsAndRestores(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	o := f.createOwner(t, "50")

	inv := billing.NewInvoice("clinic-1", types.MustMoney("80"))
	inv.OwnerID = &o.ID
	inv.Lines = []billing.InvoiceLine{{
		LineNo: 1, Type: billing.LineSale, Description: "Food bag",
		UnitCost: types.MustMoney("80"), Qty: types.MustMoney("1"),
	}}
	require.NoError(t, f.svc.CreateInvoice(ctx, inv))

	res, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID:    inv.ID,
		CreditAmount: types.MustMoney("30"),
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)
	assert.True(t, res.Payments[0].IsCredit)
	assert.True(t, res.CreditUsed.Equal(types.MustMoney("30")))

	got, err := f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(types.MustMoney("20")))

	// More credit than the remaining balance is rejected.
	_, err = f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID:    inv.ID,
		CreditAmount: types.MustMoney("30"),
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientCredit))

	// Cancelling the credit entry hands the balance back.
	_, _, err = f.svc.CancelPayment(ctx, res.Payments[0].ID, "changed mind")
	require.NoError(t, err)

	got, err = f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(types.MustMoney("50")))
}

func TestCancelInvoice_RestoresCreditAndStaysCancelled(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	o := f.createOwner(t, "100")

	inv := billing.NewInvoice("clinic-1", types.MustMoney("60"))
	inv.OwnerID = &o.ID
	inv.Lines = []billing.InvoiceLine{{
		LineNo: 1, Type: billing.LineSale, Description: "Vaccine",
		UnitCost: types.MustMoney("60"), Qty: types.MustMoney("1"),
	}}
	require.NoError(t, f.svc.CreateInvoice(ctx, inv))

	_, err := f.svc.CreatePayment(ctx, billing.CreatePaymentInput{
		InvoiceID:    inv.ID,
		CreditAmount: types.MustMoney("40"),
	})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelInvoice(ctx, inv.ID, "visit cancelled")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, cancelled.Status)
	assert.True(t, cancelled.AmountPaid.IsZero())

	got, err := f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(types.MustMoney("100")))

	// A later recalculation keeps the terminal status.
	after, err := f.svc.Recalculate(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, after.Status)

	_, err = f.svc.CancelInvoice(ctx, inv.ID, "again")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidState))
}

func TestSettle_MultipleSources(t *testing.T) {
	ctx := testContext()
	f := newBillingFixture()
	o := f.createOwner(t, "25")

	inv := billing.NewInvoice("clinic-1", types.MustMoney("100"))
	inv.OwnerID = &o.ID
	inv.Lines = []billing.InvoiceLine{{
		LineNo: 1, Type: billing.LineSale, Description: "Surgery kit",
		UnitCost: types.MustMoney("100"), Qty: types.MustMoney("1"),
	}}
	require.NoError(t, f.svc.CreateInvoice(ctx, inv))

	res, err := f.svc.Settle(ctx, billing.SettleInput{
		InvoiceID:    inv.ID,
		AmountUSD:    types.MustMoney("50"),
		AmountBs:     types.MustMoney("2500"),
		CreditAmount: types.MustMoney("25"),
		ExchangeRate: types.MustMoney("100"),
	})
	require.NoError(t, err)
	require.Len(t, res.Payments, 3)
	assert.Equal(t, billing.StatusPaid, res.Invoice.Status)
	assert.True(t, res.Invoice.AmountPaid.Equal(types.MustMoney("100")))

	got, err := f.owners.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.IsZero())
}
