package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountCash    AccountType = "Cash"
	AccountSavings AccountType = "Savings"
	AccountCurrent AccountType = "Current"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountSavings, AccountCurrent:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountClosed AccountStatus = "closed"
)

type BankAccount struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	AccountNo string          `json:"account_no,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Status    AccountStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type OpenBankAccountRequest struct {
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	AccountNo      string          `json:"account_no"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (r *OpenBankAccountRequest) Validate() error {
	var errs ValidationErrors
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		errs.Add("name", "is required")
	}
	if !r.Type.Valid() {
		errs.Add("type", "must be one of Cash, Savings, Current")
	}
	if r.OpeningBalance.IsNegative() {
		errs.Add("opening_balance", "must not be negative")
	} else {
		validateScale(&errs, "opening_balance", r.OpeningBalance)
	}
	return errs.Err()
}
