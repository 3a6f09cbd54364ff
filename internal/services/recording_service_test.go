package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
)

func TestRecordDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash box", model.AccountCash)
	m := f.member(t, "Alice", "1000")

	d, err := f.recording.RecordDonation(ctx, model.RecordDonationRequest{
		Amount:        dec("250"),
		Purpose:       "Roof repair",
		PaymentMethod: model.MethodCash,
		DonorType:     model.DonorMember,
		MemberID:      &m.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, d.BankAccountID)
	f.requireBalanced(t, cash.ID, "250")

	_, err = f.recording.RecordDonation(ctx, model.RecordDonationRequest{
		Amount:        dec("10"),
		Purpose:       "Roof repair",
		PaymentMethod: model.MethodCash,
		DonorType:     model.DonorMember,
		MemberID:      ptr(int64(9999)),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.recording.RecordDonation(ctx, model.RecordDonationRequest{
		Amount:        dec("10"),
		Purpose:       "Roof repair",
		PaymentMethod: model.MethodCash,
		DonorType:     model.DonorExternal,
	})
	assert.ErrorIs(t, err, ErrValidation)
	f.requireBalanced(t, cash.ID, "250")
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash box", model.AccountCash)
	utilities, err := f.registry.CreateCategory(ctx, model.CreateCategoryRequest{Name: "Utilities", Kind: model.CategoryExpense})
	require.NoError(t, err)
	rent, err := f.registry.CreateCategory(ctx, model.CreateCategoryRequest{Name: "Rent", Kind: model.CategoryIncome})
	require.NoError(t, err)
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	x, err := f.recording.RecordExpense(ctx, model.RecordExpenseRequest{
		Amount:        dec("120.50"),
		CategoryID:    utilities.ID,
		Date:          &date,
		PaymentMethod: model.MethodCash,
	})
	require.NoError(t, err)
	f.requireBalanced(t, cash.ID, "-120.50")

	entry, err := f.entries.FindByReference(ctx, model.Reference{Kind: model.RefExpense, ID: x.ID})
	require.NoError(t, err)
	assert.Equal(t, model.Debit, entry.Type)
	assert.Equal(t, "Utilities", entry.Category)
	assert.Equal(t, "Expense: Utilities", entry.Description)

	_, err = f.recording.RecordExpense(ctx, model.RecordExpenseRequest{
		Amount:     dec("5"),
		CategoryID: rent.ID,
		Date:       &date,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.recording.RecordExpense(ctx, model.RecordExpenseRequest{Amount: dec("5"), CategoryID: utilities.ID})
	assert.ErrorIs(t, err, ErrValidation, "date is required")
}

func TestIncomeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cash := f.account(t, "Cash box", model.AccountCash)
	savings := f.account(t, "Savings", model.AccountSavings)
	hall, err := f.registry.CreateCategory(ctx, model.CreateCategoryRequest{Name: "Hall hire", Kind: model.CategoryIncome})
	require.NoError(t, err)

	in, err := f.recording.CreateIncome(ctx, model.IncomeRequest{
		Amount:     dec("300"),
		Source:     "Wedding booking",
		CategoryID: &hall.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MethodCash, in.PaymentMethod)
	f.requireBalanced(t, cash.ID, "300")

	updated, err := f.recording.UpdateIncome(ctx, in.ID, model.IncomeRequest{
		Amount:        dec("350"),
		Source:        "Wedding booking",
		PaymentMethod: model.MethodBankTransfer,
		BankAccountID: &savings.ID,
	})
	require.NoError(t, err)
	assert.True(t, dec("350").Equal(updated.Amount))
	f.requireBalanced(t, cash.ID, "0")
	f.requireBalanced(t, savings.ID, "350")

	entry, err := f.entries.FindByReference(ctx, model.Reference{Kind: model.RefIncome, ID: in.ID})
	require.NoError(t, err)
	assert.Equal(t, "Other Income", entry.Category)

	require.NoError(t, f.recording.DeleteIncome(ctx, in.ID))
	f.requireBalanced(t, savings.ID, "0")

	_, err = f.entries.FindByReference(ctx, model.Reference{Kind: model.RefIncome, ID: in.ID})
	assert.Error(t, err)
	assert.ErrorIs(t, f.recording.DeleteIncome(ctx, in.ID), ErrNotFound)

	_, err = f.recording.UpdateIncome(ctx, in.ID, model.IncomeRequest{Amount: dec("1"), Source: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}
