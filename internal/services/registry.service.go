package services

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
)

// RegistryService manages members, accounts and categories.
type RegistryService struct {
	members    MemberRepository
	accounts   BankAccountRepository
	categories CategoryRepository
}

func NewRegistryService(members MemberRepository, accounts BankAccountRepository, categories CategoryRepository) *RegistryService {
	return &RegistryService{
		members:    members,
		accounts:   accounts,
		categories: categories,
	}
}

func (s *RegistryService) RegisterMember(ctx context.Context, req model.RegisterMemberRequest) (*model.Member, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now().UTC()
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = req.StartDate.UTC()
	}
	m, err := s.members.Create(ctx, &model.Member{
		Name:             req.Name,
		Contact:          req.Contact,
		AmountPerCycle:   req.AmountPerCycle,
		PaymentFrequency: req.PaymentFrequency,
		Status:           req.Status,
		StartDate:        start,
	})
	if err != nil {
		return nil, txFailed(errors.Wrap(err, "create member"))
	}
	logger.Info("member registered", "member_id", m.ID)
	return m, nil
}

func (s *RegistryService) ListMembers(ctx context.Context, status model.MemberStatus) ([]*model.Member, error) {
	if status != "" && !status.Valid() {
		return nil, model.NewValidationError("status", "must be one of active, inactive, deceased, moved")
	}
	list, err := s.members.List(ctx, status)
	if err != nil {
		return nil, txFailed(err)
	}
	return list, nil
}

// OpenBankAccount creates an account. An opening balance is stored as the
// starting balance, outside the ledger.
func (s *RegistryService) OpenBankAccount(ctx context.Context, req model.OpenBankAccountRequest) (*model.BankAccount, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a, err := s.accounts.Create(ctx, &model.BankAccount{
		Name:      req.Name,
		Type:      req.Type,
		AccountNo: req.AccountNo,
		Balance:   req.OpeningBalance,
		Status:    model.AccountActive,
	})
	if err != nil {
		return nil, txFailed(errors.Wrap(err, "create bank account"))
	}
	logger.Info("bank account opened", "bank_account_id", a.ID, "type", string(a.Type))
	return a, nil
}

func (s *RegistryService) ListBankAccounts(ctx context.Context) ([]*model.BankAccount, error) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		return nil, txFailed(err)
	}
	return list, nil
}

func (s *RegistryService) CreateCategory(ctx context.Context, req model.CreateCategoryRequest) (*model.Category, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.categories.Create(ctx, &model.Category{Name: req.Name, Kind: req.Kind})
	if err != nil {
		return nil, txFailed(err)
	}
	return c, nil
}

func (s *RegistryService) ListCategories(ctx context.Context, kind model.CategoryKind) ([]*model.Category, error) {
	if kind != "" && !kind.Valid() {
		return nil, model.NewValidationError("kind", "must be expense or income")
	}
	list, err := s.categories.List(ctx, kind)
	if err != nil {
		return nil, txFailed(err)
	}
	return list, nil
}
