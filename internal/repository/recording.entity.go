package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type DonationEntity struct {
	pg.Model
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Date          time.Time       `gorm:"column:date;not null"`
	Purpose       string          `gorm:"column:purpose;not null"`
	PaymentMethod string          `gorm:"column:payment_method;not null"`
	DonorType     string          `gorm:"column:donor_type;not null"`
	DonorName     string          `gorm:"column:donor_name"`
	MemberID      *int64          `gorm:"column:member_id;index"`
	BankAccountID *int64          `gorm:"column:bank_account_id"`
}

func (DonationEntity) TableName() string {
	return "donations"
}

func toDonationModel(e *DonationEntity) *model.Donation {
	if e == nil {
		return nil
	}
	return &model.Donation{
		ID:            e.ID,
		Amount:        e.Amount,
		Date:          e.Date,
		Purpose:       e.Purpose,
		PaymentMethod: model.PaymentMethod(e.PaymentMethod),
		DonorType:     model.DonorType(e.DonorType),
		DonorName:     e.DonorName,
		MemberID:      e.MemberID,
		BankAccountID: e.BankAccountID,
	}
}

type ExpenseEntity struct {
	pg.Model
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	CategoryID    int64           `gorm:"column:category_id;not null;index"`
	Date          time.Time       `gorm:"column:date;not null"`
	Description   string          `gorm:"column:description"`
	PaymentMethod string          `gorm:"column:payment_method"`
	BankAccountID *int64          `gorm:"column:bank_account_id"`
}

func (ExpenseEntity) TableName() string {
	return "expenses"
}

func toExpenseModel(e *ExpenseEntity) *model.Expense {
	if e == nil {
		return nil
	}
	return &model.Expense{
		ID:            e.ID,
		Amount:        e.Amount,
		CategoryID:    e.CategoryID,
		Date:          e.Date,
		Description:   e.Description,
		PaymentMethod: model.PaymentMethod(e.PaymentMethod),
		BankAccountID: e.BankAccountID,
	}
}

type IncomeEntity struct {
	pg.Model
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Date          time.Time       `gorm:"column:date;not null"`
	Source        string          `gorm:"column:source;not null"`
	Description   string          `gorm:"column:description"`
	CategoryID    *int64          `gorm:"column:category_id;index"`
	PaymentMethod string          `gorm:"column:payment_method;not null"`
	BankAccountID *int64          `gorm:"column:bank_account_id"`
}

func (IncomeEntity) TableName() string {
	return "incomes"
}

func toIncomeModel(e *IncomeEntity) *model.Income {
	if e == nil {
		return nil
	}
	return &model.Income{
		ID:            e.ID,
		Amount:        e.Amount,
		Date:          e.Date,
		Source:        e.Source,
		Description:   e.Description,
		CategoryID:    e.CategoryID,
		PaymentMethod: model.PaymentMethod(e.PaymentMethod),
		BankAccountID: e.BankAccountID,
	}
}

type CategoryEntity struct {
	pg.Model
	Name string `gorm:"column:name;not null;uniqueIndex:idx_categories_name_kind,where:deleted_at IS NULL"`
	Kind string `gorm:"column:kind;not null;uniqueIndex:idx_categories_name_kind,where:deleted_at IS NULL"`
}

func (CategoryEntity) TableName() string {
	return "categories"
}

func toCategoryModel(e *CategoryEntity) *model.Category {
	if e == nil {
		return nil
	}
	return &model.Category{
		ID:   e.ID,
		Name: e.Name,
		Kind: model.CategoryKind(e.Kind),
	}
}
