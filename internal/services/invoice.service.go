package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

type InvoiceConfig struct {
	DueDay      int
	InvoiceType string
}

type InvoiceService struct {
	tx       Transactor
	members  MemberRepository
	invoices InvoiceRepository
	config   InvoiceConfig
}

func NewInvoiceService(tx Transactor, members MemberRepository, invoices InvoiceRepository, config InvoiceConfig) *InvoiceService {
	if config.DueDay == 0 {
		config.DueDay = 10
	}
	if config.InvoiceType == "" {
		config.InvoiceType = model.InvoiceTypeDues
	}
	return &InvoiceService{
		tx:       tx,
		members:  members,
		invoices: invoices,
		config:   config,
	}
}

// GenerateInvoices bills every active member for period. Members are billed
// independently: a failure is counted and the run moves on, and an invoice
// that already exists counts as skipped.
func (s *InvoiceService) GenerateInvoices(ctx context.Context, period string) (*model.GenerationResult, error) {
	req := model.GenerateInvoicesRequest{Period: period}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	members, err := s.members.ListActive(ctx)
	if err != nil {
		return nil, classify(ErrTransactionFailed, errors.Wrap(err, "list active members"))
	}

	result := &model.GenerationResult{Period: period}
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, created, err := s.ensure(ctx, m, period)
		switch {
		case err != nil:
			result.Errors++
			result.Failures = append(result.Failures, model.GenerationFailure{MemberID: m.ID, Error: err.Error()})
			logger.Warn("invoice generation failed", "member_id", m.ID, "period", period, "error", err)
		case created:
			result.Generated++
		default:
			result.Skipped++
		}
	}

	prom.AddInvoiceOutcome("generated", result.Generated)
	prom.AddInvoiceOutcome("skipped", result.Skipped)
	prom.AddInvoiceOutcome("error", result.Errors)
	logger.Info("invoices generated",
		"period", period,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"errors", result.Errors)
	return result, nil
}

// EnsureInvoice returns the member's invoice for period, creating it if
// needed. Inside a transaction the create runs in a savepoint, so losing a
// race to a concurrent creator only rolls back the savepoint.
func (s *InvoiceService) EnsureInvoice(ctx context.Context, m *model.Member, period string) (*model.Invoice, error) {
	if _, err := model.ParsePeriod(period); err != nil {
		return nil, err
	}
	inv, _, err := s.ensure(ctx, m, period)
	return inv, err
}

func (s *InvoiceService) ensure(ctx context.Context, m *model.Member, period string) (*model.Invoice, bool, error) {
	existing, err := s.invoices.FindByMemberPeriod(ctx, m.ID, period, s.config.InvoiceType)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(mapRepoErr(err), ErrNotFound) {
		return nil, false, errors.Wrap(err, "look up invoice")
	}

	due, err := model.DueDate(period, s.config.DueDay)
	if err != nil {
		return nil, false, err
	}
	var created *model.Invoice
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.Create(ctx, &model.Invoice{
			InvoiceNo:  model.InvoiceNo(period, m.ID),
			MemberID:   m.ID,
			Amount:     m.AmountPerCycle,
			PaidAmount: decimal.Zero,
			Period:     period,
			DueDate:    due,
			Status:     model.InvoicePending,
			Type:       s.config.InvoiceType,
		})
		created = inv
		return err
	})
	if err == nil {
		return created, true, nil
	}
	if errors.Is(mapRepoErr(err), ErrAlreadyExists) {
		existing, findErr := s.invoices.FindByMemberPeriod(ctx, m.ID, period, s.config.InvoiceType)
		if findErr != nil {
			return nil, false, errors.Wrap(findErr, "re-read invoice after duplicate create")
		}
		return existing, false, nil
	}
	return nil, false, errors.Wrap(err, "create invoice")
}
