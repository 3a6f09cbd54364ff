package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

func setupTestDB(t *testing.T) *pg.DB {
	db, err := pg.NewSQLite(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, AutoMigrate(context.Background(), db))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedMember(t *testing.T, db *pg.DB, name string, fee string) *model.Member {
	m, err := NewMemberRepository(db).Create(context.Background(), &model.Member{
		Name:             name,
		AmountPerCycle:   dec(fee),
		PaymentFrequency: model.FrequencyMonthly,
		Status:           model.MemberActive,
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return m
}

func seedAccount(t *testing.T, db *pg.DB, name string, typ model.AccountType) *model.BankAccount {
	a, err := NewBankAccountRepository(db).Create(context.Background(), &model.BankAccount{
		Name: name,
		Type: typ,
	})
	require.NoError(t, err)
	return a
}

func seedInvoice(t *testing.T, db *pg.DB, memberID int64, period string, amount string) *model.Invoice {
	due, err := model.DueDate(period, 10)
	require.NoError(t, err)
	inv, err := NewInvoiceRepository(db).Create(context.Background(), &model.Invoice{
		InvoiceNo:  model.InvoiceNo(period, memberID),
		MemberID:   memberID,
		Amount:     dec(amount),
		PaidAmount: decimal.Zero,
		Period:     period,
		DueDate:    due,
		Status:     model.InvoicePending,
		Type:       model.InvoiceTypeDues,
	})
	require.NoError(t, err)
	return inv
}

func padID(id int64) string {
	return fmt.Sprintf("%06d", id)
}
