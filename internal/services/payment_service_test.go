package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/repository"
)

func TestApplyPayment_CashDuesSettleInTwoInstalments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash box", model.AccountCash)
	m := f.member(t, "Alice", "5000")
	inv := f.invoice(t, m, "2025-04")

	p1, err := f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("2000"), Method: model.MethodCash})
	require.NoError(t, err)
	require.NotNil(t, p1.BankAccountID)
	assert.Equal(t, cash.ID, *p1.BankAccountID)
	assert.Equal(t, model.ReceiptNo(p1.PaidAt, p1.ID), p1.ReceiptNo)

	got, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePartial, got.Status)
	assert.True(t, dec("2000").Equal(got.PaidAmount))
	f.requireBalanced(t, cash.ID, "2000")

	_, err = f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("3000"), Method: model.MethodCash})
	require.NoError(t, err)

	got, err = f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, got.Status)
	assert.True(t, dec("5000").Equal(got.PaidAmount))
	f.requireBalanced(t, cash.ID, "5000")

	sum, err := f.payments.SumByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(got.PaidAmount))

	entry, err := f.entries.FindByReference(ctx, model.Reference{Kind: model.RefPayment, ID: p1.ID})
	require.NoError(t, err)
	assert.Equal(t, model.Credit, entry.Type)
	assert.Equal(t, "Membership Dues", entry.Category)
}

func TestApplyPayment_Overpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Bob", "1000")
	inv := f.invoice(t, m, "2025-04")

	for i := 0; i < 2; i++ {
		_, err := f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("600"), Method: model.MethodOnline})
		require.NoError(t, err)
	}

	got, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, got.Status)
	assert.True(t, dec("1200").Equal(got.PaidAmount))
	assert.True(t, dec("200").Equal(got.Credit()))
	assert.True(t, got.Outstanding().IsZero())
}

func TestApplyPayment_UntrackedWithoutCashAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Bob", "1000")
	inv := f.invoice(t, m, "2025-04")

	p, err := f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("100"), Method: model.MethodCash})
	require.NoError(t, err)
	assert.Nil(t, p.BankAccountID)

	entry, err := f.entries.FindByReference(ctx, model.Reference{Kind: model.RefPayment, ID: p.ID})
	require.NoError(t, err)
	assert.Nil(t, entry.BankAccountID)
}

func TestApplyPayment_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Bob", "1000")
	inv := f.invoice(t, m, "2025-04")
	savings := f.account(t, "Savings", model.AccountSavings)
	require.NoError(t, f.db.Write(ctx).Model(&repository.BankAccountEntity{}).
		Where("id = ?", savings.ID).Update("status", string(model.AccountClosed)).Error)

	_, err := f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: decimal.Zero, Method: model.MethodCash})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: 9999, Amount: dec("10"), Method: model.MethodCash})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("10"), Method: model.MethodBankTransfer, BankAccountID: ptr(int64(9999))})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec("10"), Method: model.MethodBankTransfer, BankAccountID: &savings.ID})
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero(), "failed payments leave the invoice untouched")
	list, err := f.payments.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApplyPayment_RejectsUnstorableAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, "Bob", "1000")
	inv := f.invoice(t, m, "2025-04")

	for _, amount := range []string{"999.999", "0.001", "1000000000000"} {
		_, err := f.payer.ApplyPayment(ctx, model.ApplyPaymentRequest{InvoiceID: inv.ID, Amount: dec(amount), Method: model.MethodOnline})
		require.ErrorIs(t, err, ErrValidation, amount)
		fields := model.Fields(err)
		require.Len(t, fields, 1, amount)
		assert.Equal(t, "amount", fields[0].Field, amount)
	}

	got, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
}

func TestApplyBulkPayments_CreatesInvoicesOnDemand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash box", model.AccountCash)
	alice := f.member(t, "Alice", "1000")
	bob := f.member(t, "Bob", "1000")
	existing := f.invoice(t, bob, "2025-05")

	results, err := f.payer.ApplyBulkPayments(ctx, model.BulkPaymentRequest{
		Period: "2025-05",
		Payments: []model.BulkPaymentEntry{
			{MemberID: alice.ID, Amount: dec("1000"), Method: model.MethodCash},
			{MemberID: bob.ID, Amount: dec("400"), Method: model.MethodCash, InvoiceID: &existing.ID},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Alice", results[0].MemberName)
	assert.Equal(t, model.InvoicePaid, results[0].Status)
	assert.NotEmpty(t, results[0].ReceiptNo)
	assert.Equal(t, existing.ID, results[1].InvoiceID)
	assert.Equal(t, model.InvoicePartial, results[1].Status)

	n, err := f.invoices.CountByPeriod(ctx, "2025-05")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	f.requireBalanced(t, cash.ID, "1400")
}

func TestApplyBulkPayments_RollsBackWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash box", model.AccountCash)
	alice := f.member(t, "Alice", "1000")

	_, err := f.payer.ApplyBulkPayments(ctx, model.BulkPaymentRequest{
		Period: "2025-05",
		Payments: []model.BulkPaymentEntry{
			{MemberID: alice.ID, Amount: dec("1000"), Method: model.MethodCash},
			{MemberID: 9999, Amount: dec("500"), Method: model.MethodCash},
		},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := f.invoices.CountByPeriod(ctx, "2025-05")
	require.NoError(t, err)
	assert.Zero(t, n, "invoice created for the first entry is rolled back")
	f.requireBalanced(t, cash.ID, "0")
}

func TestApplyBulkPayments_ValidatesEveryEntryFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "Alice", "1000")

	_, err := f.payer.ApplyBulkPayments(ctx, model.BulkPaymentRequest{
		Period: "2025-05",
		Payments: []model.BulkPaymentEntry{
			{MemberID: alice.ID, Amount: dec("1000"), Method: model.MethodCash},
			{MemberID: alice.ID, Amount: decimal.Zero, Method: model.MethodCash},
		},
	})
	require.ErrorIs(t, err, ErrValidation)
	fields := model.Fields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "payments[1].amount", fields[0].Field)

	n, err := f.invoices.CountByPeriod(ctx, "2025-05")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApplyBulkPayments_RejectsForeignInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "Alice", "1000")
	bob := f.member(t, "Bob", "1000")
	bobs := f.invoice(t, bob, "2025-05")

	_, err := f.payer.ApplyBulkPayments(ctx, model.BulkPaymentRequest{
		Period:   "2025-05",
		Payments: []model.BulkPaymentEntry{{MemberID: alice.ID, Amount: dec("10"), Method: model.MethodCash, InvoiceID: &bobs.ID}},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApplyBulkPayments_TooManyEntries(t *testing.T) {
	f := newFixture(t)
	entries := make([]model.BulkPaymentEntry, 51)
	for i := range entries {
		entries[i] = model.BulkPaymentEntry{MemberID: 1, Amount: dec("1"), Method: model.MethodCash}
	}

	_, err := f.payer.ApplyBulkPayments(context.Background(), model.BulkPaymentRequest{Period: "2025-05", Payments: entries})
	assert.ErrorIs(t, err, ErrValidation)
}
