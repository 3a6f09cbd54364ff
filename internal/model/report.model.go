package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ArrearsRow struct {
	MemberID    int64           `json:"member_id"`
	MemberName  string          `json:"member_name"`
	Outstanding decimal.Decimal `json:"outstanding"`
	OpenCount   int64           `json:"open_invoices"`
	OldestOpen  string          `json:"oldest_open_period"`
}

type InvoiceView struct {
	Invoice
	MemberName      string          `json:"member_name"`
	EffectiveStatus InvoiceStatus   `json:"effective_status"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	Credit          decimal.Decimal `json:"credit"`
}

type PaymentView struct {
	Payment
	MemberID   int64  `json:"member_id"`
	MemberName string `json:"member_name"`
	InvoiceNo  string `json:"invoice_no"`
	Period     string `json:"period"`
}

type LedgerPage struct {
	AccountID int64          `json:"account_id"`
	Entries   []*LedgerEntry `json:"entries"`
	Total     int64          `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	CheckedAt time.Time         `json:"checked_at"`
}
