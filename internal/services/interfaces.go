package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
)

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MemberRepository interface {
	Create(ctx context.Context, m *model.Member) (*model.Member, error)
	Get(ctx context.Context, id int64) (*model.Member, error)
	List(ctx context.Context, status model.MemberStatus) ([]*model.Member, error)
	ListActive(ctx context.Context) ([]*model.Member, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error)
	Get(ctx context.Context, id int64) (*model.Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Invoice, error)
	FindByMemberPeriod(ctx context.Context, memberID int64, period, invoiceType string) (*model.Invoice, error)
	AddPayment(ctx context.Context, id int64, amount decimal.Decimal, status model.InvoiceStatus) error
	ListByPeriod(ctx context.Context, period string) ([]*model.Invoice, error)
	Arrears(ctx context.Context, period string) ([]*model.ArrearsRow, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	Get(ctx context.Context, id int64) (*model.Payment, error)
	ListByPeriod(ctx context.Context, period string) ([]*model.PaymentView, error)
}

type BankAccountRepository interface {
	Create(ctx context.Context, a *model.BankAccount) (*model.BankAccount, error)
	Get(ctx context.Context, id int64) (*model.BankAccount, error)
	List(ctx context.Context) ([]*model.BankAccount, error)
	FindDefaultCash(ctx context.Context) (*model.BankAccount, error)
	AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error
}

type LedgerEntryRepository interface {
	Create(ctx context.Context, p *model.LedgerPosting) (*model.LedgerEntry, error)
	FindByReference(ctx context.Context, ref model.Reference) (*model.LedgerEntry, error)
	Rewrite(ctx context.Context, id int64, p *model.LedgerPosting) (*model.LedgerEntry, error)
	Delete(ctx context.Context, id int64) error
	ListByAccount(ctx context.Context, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error)
}

type DonationRepository interface {
	Create(ctx context.Context, d *model.Donation) (*model.Donation, error)
	Get(ctx context.Context, id int64) (*model.Donation, error)
}

type ExpenseRepository interface {
	Create(ctx context.Context, x *model.Expense) (*model.Expense, error)
	Get(ctx context.Context, id int64) (*model.Expense, error)
}

type IncomeRepository interface {
	Create(ctx context.Context, in *model.Income) (*model.Income, error)
	Get(ctx context.Context, id int64) (*model.Income, error)
	Update(ctx context.Context, in *model.Income) (*model.Income, error)
	Delete(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) (*model.Category, error)
	Get(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context, kind model.CategoryKind) ([]*model.Category, error)
}

type ResetRepository interface {
	Create(ctx context.Context, req *model.ResetRequest) (*model.ResetRequest, error)
	Get(ctx context.Context, id int64) (*model.ResetRequest, error)
	List(ctx context.Context) ([]*model.ResetRequest, error)
	ListExpired(ctx context.Context, now time.Time) ([]*model.ResetRequest, error)
	SetAffectedRows(ctx context.Context, id int64, n int64) error
	Resolve(ctx context.Context, id int64, status model.ResetStatus, at time.Time) error
	Stamp(ctx context.Context, resetID int64, at time.Time) (map[string]int64, error)
	Restore(ctx context.Context, resetID int64) (map[string]int64, error)
	Purge(ctx context.Context, resetID int64) (map[string]int64, error)
}

// AuditSink receives audit entries. Writing them is a side effect; a failure
// is logged by the caller and never undoes the audited action.
type AuditSink interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
}

// Notifier publishes administrator notifications.
type Notifier interface {
	Notify(ctx context.Context, n *model.AdminNotification) error
}
