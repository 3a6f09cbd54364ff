package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCheque       PaymentMethod = "Cheque"
	MethodCard         PaymentMethod = "Card"
	MethodOnline       PaymentMethod = "Online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCheque, MethodCard, MethodOnline:
		return true
	}
	return false
}

type Payment struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	BankAccountID *int64          `json:"bank_account_id"`
	PaidAt        time.Time       `json:"paid_at"`
	ReceiptNo     string          `json:"receipt_no"`
}

func ReceiptNo(paidAt time.Time, id int64) string {
	return fmt.Sprintf("RCPT-%s-%06d", paidAt.UTC().Format("20060102"), id)
}

type ApplyPaymentRequest struct {
	InvoiceID     int64           `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	BankAccountID *int64          `json:"bank_account_id"`
}

func (r *ApplyPaymentRequest) Validate() error {
	var errs ValidationErrors
	if r.InvoiceID <= 0 {
		errs.Add("invoice_id", "is required")
	}
	validateAmount(&errs, "amount", r.Amount)
	validateMethod(&errs, "method", r.Method)
	validateAccountID(&errs, "bank_account_id", r.BankAccountID)
	return errs.Err()
}

type BulkPaymentEntry struct {
	MemberID      int64           `json:"member_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	BankAccountID *int64          `json:"bank_account_id"`
	InvoiceID     *int64          `json:"invoice_id"`
}

type BulkPaymentRequest struct {
	Period   string             `json:"period"`
	Payments []BulkPaymentEntry `json:"payments"`
}

// Validate checks every entry before anything is written. maxEntries <= 0
// disables the batch size bound.
func (r *BulkPaymentRequest) Validate(maxEntries int) error {
	var errs ValidationErrors
	if _, err := ParsePeriod(r.Period); err != nil {
		errs.Add("period", "must be formatted as YYYY-MM")
	}
	if len(r.Payments) == 0 {
		errs.Add("payments", "must contain at least one entry")
	}
	if maxEntries > 0 && len(r.Payments) > maxEntries {
		errs.Add("payments", fmt.Sprintf("must not contain more than %d entries", maxEntries))
	}
	for i, p := range r.Payments {
		prefix := fmt.Sprintf("payments[%d].", i)
		if p.MemberID <= 0 {
			errs.Add(prefix+"member_id", "is required")
		}
		validateAmount(&errs, prefix+"amount", p.Amount)
		validateMethod(&errs, prefix+"method", p.Method)
		validateAccountID(&errs, prefix+"bank_account_id", p.BankAccountID)
		if p.InvoiceID != nil && *p.InvoiceID <= 0 {
			errs.Add(prefix+"invoice_id", "must be positive")
		}
	}
	return errs.Err()
}

type BulkPaymentResult struct {
	MemberID   int64           `json:"member_id"`
	MemberName string          `json:"member_name"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
	ReceiptNo  string          `json:"receipt_no"`
	Status     InvoiceStatus   `json:"status"`
	InvoiceID  int64           `json:"invoice_id"`
	PaymentID  int64           `json:"payment_id"`
}

// MaxAmount is the first value a NUMERIC(14,2) column cannot hold.
var MaxAmount = decimal.New(1, 12)

// validateAmount accepts positive amounts storable without rounding.
func validateAmount(errs *ValidationErrors, field string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		errs.Add(field, "must be greater than zero")
		return
	}
	validateScale(errs, field, amount)
}

// validateScale rejects amounts the store would round or overflow.
func validateScale(errs *ValidationErrors, field string, amount decimal.Decimal) {
	if !amount.Equal(amount.Round(2)) {
		errs.Add(field, "must have at most 2 decimal places")
	}
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		errs.Add(field, "must be less than 1000000000000")
	}
}

func validateMethod(errs *ValidationErrors, field string, m PaymentMethod) {
	if !m.Valid() {
		errs.Add(field, "must be one of Cash, Bank Transfer, Cheque, Card, Online")
	}
}

func validateAccountID(errs *ValidationErrors, field string, id *int64) {
	if id != nil && *id <= 0 {
		errs.Add(field, "must be positive")
	}
}
