package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	Credit EntryType = "Credit"
	Debit  EntryType = "Debit"
)

func (t EntryType) Valid() bool {
	return t == Credit || t == Debit
}

// Signed is the effect of amount on an account balance.
func (t EntryType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == Debit {
		return amount.Neg()
	}
	return amount
}

// ReferenceKind names the source document a ledger entry was posted from.
type ReferenceKind string

const (
	RefPayment  ReferenceKind = "payment"
	RefDonation ReferenceKind = "donation"
	RefExpense  ReferenceKind = "expense"
	RefIncome   ReferenceKind = "income"
)

func (k ReferenceKind) Valid() bool {
	switch k {
	case RefPayment, RefDonation, RefExpense, RefIncome:
		return true
	}
	return false
}

// Reference is the typed back-pointer from a ledger entry to its source.
type Reference struct {
	Kind ReferenceKind `json:"type"`
	ID   int64         `json:"id"`
}

func (r Reference) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

type LedgerEntry struct {
	ID            int64           `json:"id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Type          EntryType       `json:"type"`
	Category      string          `json:"category"`
	BankAccountID *int64          `json:"bank_account_id"`
	Reference     Reference       `json:"reference"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LedgerPosting is what a source document asks the recorder to append.
type LedgerPosting struct {
	Date          time.Time
	Description   string
	Amount        decimal.Decimal
	Type          EntryType
	Category      string
	BankAccountID *int64
	Reference     Reference
}

func (p *LedgerPosting) Validate() error {
	var errs ValidationErrors
	validateAmount(&errs, "amount", p.Amount)
	if !p.Type.Valid() {
		errs.Add("type", "must be Credit or Debit")
	}
	if !p.Reference.Kind.Valid() {
		errs.Add("reference_type", "is not a known reference kind")
	}
	if p.Reference.ID <= 0 {
		errs.Add("reference_id", "is required")
	}
	return errs.Err()
}

// LedgerFilter selects entries for one account. AccountID 0 selects
// entries with no account.
type LedgerFilter struct {
	AccountID int64
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

const (
	DefaultLedgerLimit = 50
	MaxLedgerLimit     = 1000
)

func (f *LedgerFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLedgerLimit
	}
	if f.Limit > MaxLedgerLimit {
		f.Limit = MaxLedgerLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
