package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePaid    InvoiceStatus = "paid"
	// InvoiceOverdue is derived at read time and never stored.
	InvoiceOverdue InvoiceStatus = "overdue"
)

// InvoiceTypeDues is the cycle-dues invoice type.
const InvoiceTypeDues = "Sanda"

const periodLayout = "2006-01"

// ParsePeriod parses a "YYYY-MM" billing period into the first instant of
// that month in UTC.
func ParsePeriod(period string) (time.Time, error) {
	if len(period) != len(periodLayout) {
		return time.Time{}, NewValidationError("period", "must be formatted as YYYY-MM")
	}
	t, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, NewValidationError("period", "must be formatted as YYYY-MM")
	}
	return t.UTC(), nil
}

func PeriodOf(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

// InvoiceNo is deterministic in (period, member) so a rerun for the same pair
// lands on the same number.
func InvoiceNo(period string, memberID int64) string {
	compact := period
	if len(period) == len(periodLayout) {
		compact = period[:4] + period[5:]
	}
	return fmt.Sprintf("INV-%s-%06d", compact, memberID)
}

// DueDate is dueDay of the period month, clamped to the month's last day.
func DueDate(period string, dueDay int) (time.Time, error) {
	start, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	last := start.AddDate(0, 1, -1).Day()
	if dueDay > last {
		dueDay = last
	}
	if dueDay < 1 {
		dueDay = 1
	}
	return time.Date(start.Year(), start.Month(), dueDay, 0, 0, 0, 0, time.UTC), nil
}

// DeriveStatus is the stored status for a paid amount against the billed
// amount. Overpayment stays paid.
func DeriveStatus(amount, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(amount):
		return InvoicePaid
	case paid.IsPositive():
		return InvoicePartial
	default:
		return InvoicePending
	}
}

type Invoice struct {
	ID         int64           `json:"id"`
	InvoiceNo  string          `json:"invoice_no"`
	MemberID   int64           `json:"member_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Period     string          `json:"period"`
	DueDate    time.Time       `json:"due_date"`
	Status     InvoiceStatus   `json:"status"`
	Type       string          `json:"type"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EffectiveStatus reports overdue for an unpaid invoice past its due date.
func (i *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status != InvoicePaid && now.After(i.DueDate.AddDate(0, 0, 1)) {
		return InvoiceOverdue
	}
	return i.Status
}

// Outstanding is never negative; overpayment shows up in Credit.
func (i *Invoice) Outstanding() decimal.Decimal {
	rest := i.Amount.Sub(i.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

func (i *Invoice) Credit() decimal.Decimal {
	over := i.PaidAmount.Sub(i.Amount)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}

type GenerateInvoicesRequest struct {
	Period string `json:"period"`
}

func (r *GenerateInvoicesRequest) Validate() error {
	_, err := ParsePeriod(r.Period)
	return err
}

type GenerationFailure struct {
	MemberID int64  `json:"member_id"`
	Error    string `json:"error"`
}

type GenerationResult struct {
	Period    string              `json:"period"`
	Generated int                 `json:"generated"`
	Skipped   int                 `json:"skipped"`
	Errors    int                 `json:"errors"`
	Failures  []GenerationFailure `json:"failures,omitempty"`
}
