package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/internal/repository"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type fixture struct {
	db         *pg.DB
	members    *repository.MemberRepository
	accounts   *repository.BankAccountRepository
	invoices   *repository.InvoiceRepository
	payments   *repository.PaymentRepository
	entries    *repository.LedgerEntryRepository
	categories *repository.CategoryRepository
	resets     *repository.ResetRepository
	audit      *repository.AuditRepository

	ledger    *LedgerRecorder
	billing   *InvoiceService
	payer     *PaymentService
	recording *RecordingService
	registry  *RegistryService
	reports   *ReportService
}

func newFixture(t *testing.T) *fixture {
	db, err := pg.NewSQLite(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.AutoMigrate(context.Background(), db))

	f := &fixture{
		db:         db,
		members:    repository.NewMemberRepository(db),
		accounts:   repository.NewBankAccountRepository(db),
		invoices:   repository.NewInvoiceRepository(db),
		payments:   repository.NewPaymentRepository(db),
		entries:    repository.NewLedgerEntryRepository(db),
		categories: repository.NewCategoryRepository(db),
		resets:     repository.NewResetRepository(db),
		audit:      repository.NewAuditRepository(db),
	}
	donations := repository.NewDonationRepository(db)
	expenses := repository.NewExpenseRepository(db)
	incomes := repository.NewIncomeRepository(db)

	f.ledger = NewLedgerRecorder(db, f.entries, f.accounts, f.payments, donations, expenses, incomes)
	f.billing = NewInvoiceService(db, f.members, f.invoices, InvoiceConfig{DueDay: 10, InvoiceType: model.InvoiceTypeDues})
	f.payer = NewPaymentService(db, f.members, f.invoices, f.payments, f.ledger, f.billing, 50)
	f.recording = NewRecordingService(db, f.members, donations, expenses, incomes, f.categories, f.ledger)
	f.registry = NewRegistryService(f.members, f.accounts, f.categories)
	f.reports = NewReportService(f.members, f.invoices, f.payments, f.entries, f.accounts)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) member(t *testing.T, name, fee string) *model.Member {
	m, err := f.registry.RegisterMember(context.Background(), model.RegisterMemberRequest{
		Name:           name,
		AmountPerCycle: dec(fee),
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) account(t *testing.T, name string, typ model.AccountType) *model.BankAccount {
	a, err := f.registry.OpenBankAccount(context.Background(), model.OpenBankAccountRequest{Name: name, Type: typ})
	require.NoError(t, err)
	return a
}

func (f *fixture) invoice(t *testing.T, m *model.Member, period string) *model.Invoice {
	inv, err := f.billing.EnsureInvoice(context.Background(), m, period)
	require.NoError(t, err)
	return inv
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	a, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}

// requireBalanced checks the stored balance against the ledger fold.
func (f *fixture) requireBalanced(t *testing.T, id int64, want string) {
	t.Helper()
	net, err := f.entries.NetByAccount(context.Background(), id)
	require.NoError(t, err)
	bal := f.balance(t, id)
	require.Truef(t, dec(want).Equal(bal), "balance %s, want %s", bal, want)
	require.Truef(t, net.Equal(bal), "ledger net %s, balance %s", net, bal)
}

func ptr[T any](v T) *T { return &v }

type mockPhraseStore struct {
	mock.Mock
}

func (m *mockPhraseStore) Issue(ctx context.Context, phrase string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, phrase, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockPhraseStore) Consume(ctx context.Context, phrase string) (bool, error) {
	args := m.Called(ctx, phrase)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n *model.AdminNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func notificationOf(kind model.NotificationKind) interface{} {
	return mock.MatchedBy(func(n *model.AdminNotification) bool { return n.Kind == kind })
}
