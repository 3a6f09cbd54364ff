package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DonorType string

const (
	DonorMember    DonorType = "member"
	DonorExternal  DonorType = "external"
	DonorAnonymous DonorType = "anonymous"
)

type CategoryKind string

const (
	CategoryExpense CategoryKind = "expense"
	CategoryIncome  CategoryKind = "income"
)

func (k CategoryKind) Valid() bool {
	return k == CategoryExpense || k == CategoryIncome
}

type Category struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Kind CategoryKind `json:"kind"`
}

type CreateCategoryRequest struct {
	Name string       `json:"name"`
	Kind CategoryKind `json:"kind"`
}

func (r *CreateCategoryRequest) Validate() error {
	var errs ValidationErrors
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		errs.Add("name", "is required")
	}
	if !r.Kind.Valid() {
		errs.Add("kind", "must be expense or income")
	}
	return errs.Err()
}

type Donation struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Purpose       string          `json:"purpose"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	DonorType     DonorType       `json:"donor_type"`
	DonorName     string          `json:"donor_name,omitempty"`
	MemberID      *int64          `json:"member_id"`
	BankAccountID *int64          `json:"bank_account_id"`
}

type RecordDonationRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Date          *time.Time      `json:"date"`
	Purpose       string          `json:"purpose"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	DonorType     DonorType       `json:"donor_type"`
	DonorName     string          `json:"donor_name"`
	MemberID      *int64          `json:"member_id"`
	BankAccountID *int64          `json:"bank_account_id"`
}

func (r *RecordDonationRequest) Validate() error {
	var errs ValidationErrors
	validateAmount(&errs, "amount", r.Amount)
	r.Purpose = strings.TrimSpace(r.Purpose)
	if r.Purpose == "" {
		errs.Add("purpose", "is required")
	}
	validateMethod(&errs, "payment_method", r.PaymentMethod)
	validateAccountID(&errs, "bank_account_id", r.BankAccountID)
	switch r.DonorType {
	case DonorMember:
		if r.MemberID == nil || *r.MemberID <= 0 {
			errs.Add("member_id", "is required for member donors")
		}
	case DonorExternal:
		if strings.TrimSpace(r.DonorName) == "" {
			errs.Add("donor_name", "is required for external donors")
		}
	case DonorAnonymous:
	default:
		errs.Add("donor_type", "must be one of member, external, anonymous")
	}
	return errs.Err()
}

type Expense struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    int64           `json:"category_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	BankAccountID *int64          `json:"bank_account_id"`
}

type RecordExpenseRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	CategoryID    int64           `json:"category_id"`
	Date          *time.Time      `json:"date"`
	Description   string          `json:"description"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	BankAccountID *int64          `json:"bank_account_id"`
}

func (r *RecordExpenseRequest) Validate() error {
	var errs ValidationErrors
	validateAmount(&errs, "amount", r.Amount)
	if r.CategoryID <= 0 {
		errs.Add("category_id", "is required")
	}
	if r.Date == nil || r.Date.IsZero() {
		errs.Add("date", "is required")
	}
	if r.PaymentMethod != "" {
		validateMethod(&errs, "payment_method", r.PaymentMethod)
	}
	validateAccountID(&errs, "bank_account_id", r.BankAccountID)
	return errs.Err()
}

type Income struct {
	ID            int64           `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	Source        string          `json:"source"`
	Description   string          `json:"description,omitempty"`
	CategoryID    *int64          `json:"category_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	BankAccountID *int64          `json:"bank_account_id"`
}

// IncomeRequest is used for both create and full update.
type IncomeRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Date          *time.Time      `json:"date"`
	Source        string          `json:"source"`
	Description   string          `json:"description"`
	CategoryID    *int64          `json:"category_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	BankAccountID *int64          `json:"bank_account_id"`
}

func (r *IncomeRequest) Validate() error {
	var errs ValidationErrors
	validateAmount(&errs, "amount", r.Amount)
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		errs.Add("source", "is required")
	}
	if r.PaymentMethod == "" {
		r.PaymentMethod = MethodCash
	}
	validateMethod(&errs, "payment_method", r.PaymentMethod)
	validateAccountID(&errs, "bank_account_id", r.BankAccountID)
	if r.CategoryID != nil && *r.CategoryID <= 0 {
		errs.Add("category_id", "must be positive")
	}
	return errs.Err()
}
