package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var (
	ErrDonationNotFound = errors.New("donation not found")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrIncomeNotFound   = errors.New("income not found")
)

type DonationRepository struct {
	*pg.DB
}

func NewDonationRepository(db *pg.DB) *DonationRepository {
	return &DonationRepository{db}
}

func (r *DonationRepository) Create(ctx context.Context, d *model.Donation) (*model.Donation, error) {
	e := &DonationEntity{
		Amount:        d.Amount,
		Date:          d.Date,
		Purpose:       d.Purpose,
		PaymentMethod: string(d.PaymentMethod),
		DonorType:     string(d.DonorType),
		DonorName:     d.DonorName,
		MemberID:      d.MemberID,
		BankAccountID: d.BankAccountID,
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toDonationModel(e), nil
}

func (r *DonationRepository) Get(ctx context.Context, id int64) (*model.Donation, error) {
	var e DonationEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return toDonationModel(&e), nil
}

type ExpenseRepository struct {
	*pg.DB
}

func NewExpenseRepository(db *pg.DB) *ExpenseRepository {
	return &ExpenseRepository{db}
}

func (r *ExpenseRepository) Create(ctx context.Context, x *model.Expense) (*model.Expense, error) {
	e := &ExpenseEntity{
		Amount:        x.Amount,
		CategoryID:    x.CategoryID,
		Date:          x.Date,
		Description:   x.Description,
		PaymentMethod: string(x.PaymentMethod),
		BankAccountID: x.BankAccountID,
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toExpenseModel(e), nil
}

func (r *ExpenseRepository) Get(ctx context.Context, id int64) (*model.Expense, error) {
	var e ExpenseEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return toExpenseModel(&e), nil
}

type IncomeRepository struct {
	*pg.DB
}

func NewIncomeRepository(db *pg.DB) *IncomeRepository {
	return &IncomeRepository{db}
}

func (r *IncomeRepository) Create(ctx context.Context, in *model.Income) (*model.Income, error) {
	e := &IncomeEntity{
		Amount:        in.Amount,
		Date:          in.Date,
		Source:        in.Source,
		Description:   in.Description,
		CategoryID:    in.CategoryID,
		PaymentMethod: string(in.PaymentMethod),
		BankAccountID: in.BankAccountID,
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toIncomeModel(e), nil
}

func (r *IncomeRepository) Get(ctx context.Context, id int64) (*model.Income, error) {
	var e IncomeEntity
	if err := r.Write(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncomeNotFound
		}
		return nil, err
	}
	return toIncomeModel(&e), nil
}

func (r *IncomeRepository) Update(ctx context.Context, in *model.Income) (*model.Income, error) {
	result := r.Write(ctx).
		Model(&IncomeEntity{}).
		Where("id = ?", in.ID).
		Updates(map[string]interface{}{
			"amount":          in.Amount,
			"date":            in.Date,
			"source":          in.Source,
			"description":     in.Description,
			"category_id":     in.CategoryID,
			"payment_method":  string(in.PaymentMethod),
			"bank_account_id": in.BankAccountID,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrIncomeNotFound
	}
	return r.Get(ctx, in.ID)
}

func (r *IncomeRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).Where("id = ?", id).Delete(&IncomeEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIncomeNotFound
	}
	return nil
}
