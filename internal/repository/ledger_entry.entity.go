package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type LedgerEntryEntity struct {
	pg.Model
	Date          time.Time       `gorm:"column:date;not null;index"`
	Description   string          `gorm:"column:description"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Type          string          `gorm:"column:type;not null"`
	Category      string          `gorm:"column:category"`
	BankAccountID *int64          `gorm:"column:bank_account_id;index"`
	ReferenceType string          `gorm:"column:reference_type;not null;index:idx_ledger_entries_reference"`
	ReferenceID   int64           `gorm:"column:reference_id;not null;index:idx_ledger_entries_reference"`
}

func (LedgerEntryEntity) TableName() string {
	return "ledger_entries"
}

func toLedgerEntryEntity(p *model.LedgerPosting) *LedgerEntryEntity {
	return &LedgerEntryEntity{
		Date:          p.Date,
		Description:   p.Description,
		Amount:        p.Amount,
		Type:          string(p.Type),
		Category:      p.Category,
		BankAccountID: p.BankAccountID,
		ReferenceType: string(p.Reference.Kind),
		ReferenceID:   p.Reference.ID,
	}
}

func toLedgerEntryModel(e *LedgerEntryEntity) *model.LedgerEntry {
	if e == nil {
		return nil
	}
	return &model.LedgerEntry{
		ID:            e.ID,
		Date:          e.Date,
		Description:   e.Description,
		Amount:        e.Amount,
		Type:          model.EntryType(e.Type),
		Category:      e.Category,
		BankAccountID: e.BankAccountID,
		Reference: model.Reference{
			Kind: model.ReferenceKind(e.ReferenceType),
			ID:   e.ReferenceID,
		},
		CreatedAt: e.CreatedAt,
	}
}
