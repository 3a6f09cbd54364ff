package repository

import (
	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type BankAccountEntity struct {
	pg.Model
	Name      string          `gorm:"column:name;not null"`
	Type      string          `gorm:"column:type;not null;index"`
	AccountNo string          `gorm:"column:account_no"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	Status    string          `gorm:"column:status;not null;default:active"`
}

func (BankAccountEntity) TableName() string {
	return "bank_accounts"
}

func toBankAccountModel(e *BankAccountEntity) *model.BankAccount {
	if e == nil {
		return nil
	}
	return &model.BankAccount{
		ID:        e.ID,
		Name:      e.Name,
		Type:      model.AccountType(e.Type),
		AccountNo: e.AccountNo,
		Balance:   e.Balance,
		Status:    model.AccountStatus(e.Status),
		CreatedAt: e.CreatedAt,
	}
}
