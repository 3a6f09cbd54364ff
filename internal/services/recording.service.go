package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

// RecordingService records donations, expenses and other income. Each source
// document and its ledger posting commit together.
type RecordingService struct {
	tx         Transactor
	members    MemberRepository
	donations  DonationRepository
	expenses   ExpenseRepository
	incomes    IncomeRepository
	categories CategoryRepository
	ledger     *LedgerRecorder
	now        func() time.Time
}

func NewRecordingService(
	tx Transactor,
	members MemberRepository,
	donations DonationRepository,
	expenses ExpenseRepository,
	incomes IncomeRepository,
	categories CategoryRepository,
	ledger *LedgerRecorder,
) *RecordingService {
	return &RecordingService{
		tx:         tx,
		members:    members,
		donations:  donations,
		expenses:   expenses,
		incomes:    incomes,
		categories: categories,
		ledger:     ledger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *RecordingService) dateOr(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.now()
	}
	return t.UTC()
}

func (s *RecordingService) RecordDonation(ctx context.Context, req model.RecordDonationRequest) (*model.Donation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var donation *model.Donation
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if req.DonorType == model.DonorMember {
			if _, err := s.members.Get(ctx, *req.MemberID); err != nil {
				return errors.Wrapf(mapRepoErr(err), "member %d", *req.MemberID)
			}
		}
		account, err := s.ledger.ResolveAccount(ctx, req.PaymentMethod, req.BankAccountID)
		if err != nil {
			return err
		}
		d, err := s.donations.Create(ctx, &model.Donation{
			Amount:        req.Amount,
			Date:          s.dateOr(req.Date),
			Purpose:       req.Purpose,
			PaymentMethod: req.PaymentMethod,
			DonorType:     req.DonorType,
			DonorName:     req.DonorName,
			MemberID:      req.MemberID,
			BankAccountID: account,
		})
		if err != nil {
			return errors.Wrap(err, "create donation")
		}
		_, err = s.ledger.Record(ctx, model.LedgerPosting{
			Date:          d.Date,
			Description:   fmt.Sprintf("Donation: %s", d.Purpose),
			Amount:        d.Amount,
			Type:          model.Credit,
			Category:      "Donation",
			BankAccountID: account,
			Reference:     model.Reference{Kind: model.RefDonation, ID: d.ID},
		})
		donation = d
		return err
	})
	if err != nil {
		return nil, txFailed(err)
	}
	prom.IncLedgerEntry(string(model.Credit))
	logger.Info("donation recorded", "donation_id", donation.ID, "amount", donation.Amount.String())
	return donation, nil
}

func (s *RecordingService) RecordExpense(ctx context.Context, req model.RecordExpenseRequest) (*model.Expense, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var expense *model.Expense
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		category, err := s.categories.Get(ctx, req.CategoryID)
		if err != nil {
			return errors.Wrapf(mapRepoErr(err), "category %d", req.CategoryID)
		}
		if category.Kind != model.CategoryExpense {
			return model.NewValidationError("category_id", "must be an expense category")
		}
		account, err := s.ledger.ResolveAccount(ctx, req.PaymentMethod, req.BankAccountID)
		if err != nil {
			return err
		}
		x, err := s.expenses.Create(ctx, &model.Expense{
			Amount:        req.Amount,
			CategoryID:    category.ID,
			Date:          s.dateOr(req.Date),
			Description:   req.Description,
			PaymentMethod: req.PaymentMethod,
			BankAccountID: account,
		})
		if err != nil {
			return errors.Wrap(err, "create expense")
		}
		_, err = s.ledger.Record(ctx, model.LedgerPosting{
			Date:          x.Date,
			Description:   describe("Expense", x.Description, category.Name),
			Amount:        x.Amount,
			Type:          model.Debit,
			Category:      category.Name,
			BankAccountID: account,
			Reference:     model.Reference{Kind: model.RefExpense, ID: x.ID},
		})
		expense = x
		return err
	})
	if err != nil {
		return nil, txFailed(err)
	}
	prom.IncLedgerEntry(string(model.Debit))
	logger.Info("expense recorded", "expense_id", expense.ID, "amount", expense.Amount.String())
	return expense, nil
}

func (s *RecordingService) CreateIncome(ctx context.Context, req model.IncomeRequest) (*model.Income, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var income *model.Income
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		category, err := s.incomeCategory(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		account, err := s.ledger.ResolveAccount(ctx, req.PaymentMethod, req.BankAccountID)
		if err != nil {
			return err
		}
		in, err := s.incomes.Create(ctx, &model.Income{
			Amount:        req.Amount,
			Date:          s.dateOr(req.Date),
			Source:        req.Source,
			Description:   req.Description,
			CategoryID:    req.CategoryID,
			PaymentMethod: req.PaymentMethod,
			BankAccountID: account,
		})
		if err != nil {
			return errors.Wrap(err, "create income")
		}
		_, err = s.ledger.Record(ctx, incomePosting(in, category))
		income = in
		return err
	})
	if err != nil {
		return nil, txFailed(err)
	}
	prom.IncLedgerEntry(string(model.Credit))
	logger.Info("income recorded", "income_id", income.ID, "amount", income.Amount.String())
	return income, nil
}

// UpdateIncome replaces an income record and reconciles its ledger entry,
// moving the balance effect if the amount or account changed.
func (s *RecordingService) UpdateIncome(ctx context.Context, id int64, req model.IncomeRequest) (*model.Income, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var income *model.Income
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.incomes.Get(ctx, id)
		if err != nil {
			return errors.Wrapf(mapRepoErr(err), "income %d", id)
		}
		category, err := s.incomeCategory(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		account, err := s.ledger.ResolveAccount(ctx, req.PaymentMethod, req.BankAccountID)
		if err != nil {
			return err
		}
		date := current.Date
		if req.Date != nil && !req.Date.IsZero() {
			date = req.Date.UTC()
		}
		in, err := s.incomes.Update(ctx, &model.Income{
			ID:            id,
			Amount:        req.Amount,
			Date:          date,
			Source:        req.Source,
			Description:   req.Description,
			CategoryID:    req.CategoryID,
			PaymentMethod: req.PaymentMethod,
			BankAccountID: account,
		})
		if err != nil {
			return errors.Wrap(mapRepoErr(err), "update income")
		}
		_, err = s.ledger.Reconcile(ctx, model.Reference{Kind: model.RefIncome, ID: id}, incomePosting(in, category))
		income = in
		return err
	})
	if err != nil {
		return nil, txFailed(err)
	}
	logger.Info("income updated", "income_id", id, "amount", income.Amount.String())
	return income, nil
}

// DeleteIncome tombstones an income record and voids its ledger entry.
func (s *RecordingService) DeleteIncome(ctx context.Context, id int64) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.incomes.Get(ctx, id); err != nil {
			return errors.Wrapf(mapRepoErr(err), "income %d", id)
		}
		if err := s.ledger.Void(ctx, model.Reference{Kind: model.RefIncome, ID: id}); err != nil {
			return err
		}
		return mapRepoErr(s.incomes.Delete(ctx, id))
	})
	if err != nil {
		return txFailed(err)
	}
	logger.Info("income deleted", "income_id", id)
	return nil
}

func (s *RecordingService) incomeCategory(ctx context.Context, id *int64) (*model.Category, error) {
	if id == nil {
		return nil, nil
	}
	category, err := s.categories.Get(ctx, *id)
	if err != nil {
		return nil, errors.Wrapf(mapRepoErr(err), "category %d", *id)
	}
	if category.Kind != model.CategoryIncome {
		return nil, model.NewValidationError("category_id", "must be an income category")
	}
	return category, nil
}

func incomePosting(in *model.Income, category *model.Category) model.LedgerPosting {
	label := "Other Income"
	if category != nil {
		label = category.Name
	}
	return model.LedgerPosting{
		Date:          in.Date,
		Description:   describe("Income", in.Description, in.Source),
		Amount:        in.Amount,
		Type:          model.Credit,
		Category:      label,
		BankAccountID: in.BankAccountID,
		Reference:     model.Reference{Kind: model.RefIncome, ID: in.ID},
	}
}

func describe(prefix, text, fallback string) string {
	if text == "" {
		text = fallback
	}
	return prefix + ": " + text
}
