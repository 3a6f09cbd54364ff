package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
)

func posting(amount string, typ model.EntryType, account *int64, ref model.Reference, day int) *model.LedgerPosting {
	return &model.LedgerPosting{
		Date:          time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Description:   "test",
		Amount:        dec(amount),
		Type:          typ,
		Category:      "Dues",
		BankAccountID: account,
		Reference:     ref,
	}
}

func TestLedgerEntryRepository_ReferenceRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerEntryRepository(db)
	ctx := context.Background()
	acct := seedAccount(t, db, "Cash", model.AccountCash)

	ref := model.Reference{Kind: model.RefIncome, ID: 7}
	created, err := repo.Create(ctx, posting("250", model.Credit, &acct.ID, ref, 1))
	require.NoError(t, err)

	found, err := repo.FindByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, ref, found.Reference)

	rewritten, err := repo.Rewrite(ctx, found.ID, posting("300", model.Credit, nil, ref, 2))
	require.NoError(t, err)
	assert.True(t, dec("300").Equal(rewritten.Amount))
	assert.Nil(t, rewritten.BankAccountID)

	require.NoError(t, repo.Delete(ctx, found.ID))
	_, err = repo.FindByReference(ctx, ref)
	assert.ErrorIs(t, err, ErrLedgerEntryNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, found.ID), ErrLedgerEntryNotFound)
}

func TestLedgerEntryRepository_ListAndNet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerEntryRepository(db)
	ctx := context.Background()
	acct := seedAccount(t, db, "Bank", model.AccountSavings)

	_, err := repo.Create(ctx, posting("1000", model.Credit, &acct.ID, model.Reference{Kind: model.RefPayment, ID: 1}, 3))
	require.NoError(t, err)
	_, err = repo.Create(ctx, posting("250", model.Debit, &acct.ID, model.Reference{Kind: model.RefExpense, ID: 1}, 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, posting("75", model.Credit, nil, model.Reference{Kind: model.RefDonation, ID: 1}, 2))
	require.NoError(t, err)

	net, err := repo.NetByAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, dec("750").Equal(net), net.String())

	entries, total, err := repo.ListByAccount(ctx, model.LedgerFilter{AccountID: acct.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, model.Debit, entries[0].Type)

	entries, total, err = repo.ListByAccount(ctx, model.LedgerFilter{AccountID: acct.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 1)
	assert.Equal(t, model.Credit, entries[0].Type)

	from := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	entries, total, err = repo.ListByAccount(ctx, model.LedgerFilter{AccountID: acct.ID, From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, entries, 1)

	untracked, total, err := repo.ListByAccount(ctx, model.LedgerFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Nil(t, untracked[0].BankAccountID)

	n, err := repo.CountByReferenceKind(ctx, model.RefPayment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
