package services

import (
	"context"
	"time"

	"github.com/nimasrn/dues-ledger/internal/model"
)

// ReportService serves read-only projections over live rows.
type ReportService struct {
	members  MemberRepository
	invoices InvoiceRepository
	payments PaymentRepository
	entries  LedgerEntryRepository
	accounts BankAccountRepository
	now      func() time.Time
}

func NewReportService(members MemberRepository, invoices InvoiceRepository, payments PaymentRepository, entries LedgerEntryRepository, accounts BankAccountRepository) *ReportService {
	return &ReportService{
		members:  members,
		invoices: invoices,
		payments: payments,
		entries:  entries,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Arrears lists members with open invoices up to the period containing asOf.
func (s *ReportService) Arrears(ctx context.Context, asOf time.Time) ([]*model.ArrearsRow, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	rows, err := s.invoices.Arrears(ctx, model.PeriodOf(asOf))
	if err != nil {
		return nil, txFailed(err)
	}
	return rows, nil
}

func (s *ReportService) LedgerByAccount(ctx context.Context, f model.LedgerFilter) (*model.LedgerPage, error) {
	if f.AccountID < 0 {
		return nil, model.NewValidationError("account_id", "must not be negative")
	}
	if f.AccountID > 0 {
		if _, err := s.accounts.Get(ctx, f.AccountID); err != nil {
			return nil, mapRepoErr(err)
		}
	}
	f.Normalize()
	entries, total, err := s.entries.ListByAccount(ctx, f)
	if err != nil {
		return nil, txFailed(err)
	}
	return &model.LedgerPage{
		AccountID: f.AccountID,
		Entries:   entries,
		Total:     total,
		Limit:     f.Limit,
		Offset:    f.Offset,
	}, nil
}

func (s *ReportService) InvoicesByPeriod(ctx context.Context, period string) ([]*model.InvoiceView, error) {
	if _, err := model.ParsePeriod(period); err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByPeriod(ctx, period)
	if err != nil {
		return nil, txFailed(err)
	}
	names := make(map[int64]string)
	now := s.now()
	views := make([]*model.InvoiceView, len(invoices))
	for i, inv := range invoices {
		name, ok := names[inv.MemberID]
		if !ok {
			if m, err := s.members.Get(ctx, inv.MemberID); err == nil {
				name = m.Name
			}
			names[inv.MemberID] = name
		}
		views[i] = &model.InvoiceView{
			Invoice:         *inv,
			MemberName:      name,
			EffectiveStatus: inv.EffectiveStatus(now),
			Outstanding:     inv.Outstanding(),
			Credit:          inv.Credit(),
		}
	}
	return views, nil
}

func (s *ReportService) PaymentsByPeriod(ctx context.Context, period string) ([]*model.PaymentView, error) {
	if _, err := model.ParsePeriod(period); err != nil {
		return nil, err
	}
	list, err := s.payments.ListByPeriod(ctx, period)
	if err != nil {
		return nil, txFailed(err)
	}
	return list, nil
}
