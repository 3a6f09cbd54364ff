package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var ErrBankAccountNotFound = errors.New("bank account not found")

type BankAccountRepository struct {
	*pg.DB
}

func NewBankAccountRepository(db *pg.DB) *BankAccountRepository {
	return &BankAccountRepository{db}
}

func (r *BankAccountRepository) Create(ctx context.Context, a *model.BankAccount) (*model.BankAccount, error) {
	e := &BankAccountEntity{
		Name:      a.Name,
		Type:      string(a.Type),
		AccountNo: a.AccountNo,
		Balance:   a.Balance,
		Status:    string(a.Status),
	}
	if e.Status == "" {
		e.Status = string(model.AccountActive)
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toBankAccountModel(e), nil
}

func (r *BankAccountRepository) Get(ctx context.Context, id int64) (*model.BankAccount, error) {
	var e BankAccountEntity
	err := r.Read(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, err
	}
	return toBankAccountModel(&e), nil
}

func (r *BankAccountRepository) List(ctx context.Context) ([]*model.BankAccount, error) {
	var entities []*BankAccountEntity
	if err := r.Read(ctx).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.BankAccount, len(entities))
	for i, e := range entities {
		out[i] = toBankAccountModel(e)
	}
	return out, nil
}

// FindDefaultCash returns the oldest active Cash account.
func (r *BankAccountRepository) FindDefaultCash(ctx context.Context) (*model.BankAccount, error) {
	var e BankAccountEntity
	err := r.Read(ctx).
		Where("type = ? AND status = ?", string(model.AccountCash), string(model.AccountActive)).
		Order("id ASC").
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, err
	}
	return toBankAccountModel(&e), nil
}

// AdjustBalance applies delta in a single server-side UPDATE so concurrent
// postings against one account never lose an update.
func (r *BankAccountRepository) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	result := r.Write(ctx).
		Model(&BankAccountEntity{}).
		Where("id = ?", accountID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBankAccountNotFound
	}
	return nil
}
