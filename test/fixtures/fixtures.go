package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
)

var (
	MarchPeriod = "2025-03"
	AprilPeriod = "2025-04"

	MarchStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
)

func NewMember(name string, perCycle int64) model.RegisterMemberRequest {
	return model.RegisterMemberRequest{
		Name:             name,
		Contact:          name + "@example.org",
		AmountPerCycle:   decimal.NewFromInt(perCycle),
		PaymentFrequency: model.FrequencyMonthly,
		Status:           model.MemberActive,
		StartDate:        &MarchStart,
	}
}

func InactiveMember(name string, perCycle int64) model.RegisterMemberRequest {
	m := NewMember(name, perCycle)
	m.Status = model.MemberInactive
	return m
}

func CashAccount() model.OpenBankAccountRequest {
	return model.OpenBankAccountRequest{Name: "Cash", Type: model.AccountCash}
}

func BankAccount(name, number string, opening int64) model.OpenBankAccountRequest {
	return model.OpenBankAccountRequest{
		Name:           name,
		Type:           model.AccountCurrent,
		AccountNo:      number,
		OpeningBalance: decimal.NewFromInt(opening),
	}
}

func CashPayment(invoiceID, amount int64) model.ApplyPaymentRequest {
	return model.ApplyPaymentRequest{
		InvoiceID: invoiceID,
		Amount:    decimal.NewFromInt(amount),
		Method:    model.MethodCash,
	}
}

func BulkEntry(memberID, amount int64) model.BulkPaymentEntry {
	return model.BulkPaymentEntry{
		MemberID: memberID,
		Amount:   decimal.NewFromInt(amount),
		Method:   model.MethodCash,
	}
}

func ExpenseCategory(name string) model.CreateCategoryRequest {
	return model.CreateCategoryRequest{Name: name, Kind: model.CategoryExpense}
}
