package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

// InvoiceEntity keeps one live row per (member, period, type). The unique
// indexes only cover live rows so a tombstoned invoice does not block a new
// one for the same period.
type InvoiceEntity struct {
	pg.Model
	InvoiceNo  string          `gorm:"column:invoice_no;not null;uniqueIndex:idx_invoices_invoice_no,where:deleted_at IS NULL"`
	MemberID   int64           `gorm:"column:member_id;not null;uniqueIndex:idx_invoices_member_period_type,where:deleted_at IS NULL"`
	Period     string          `gorm:"column:period;not null;uniqueIndex:idx_invoices_member_period_type,where:deleted_at IS NULL;index"`
	Type       string          `gorm:"column:type;not null;uniqueIndex:idx_invoices_member_period_type,where:deleted_at IS NULL"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	PaidAmount decimal.Decimal `gorm:"column:paid_amount;type:numeric(14,2);not null;default:0"`
	DueDate    time.Time       `gorm:"column:due_date;not null"`
	Status     string          `gorm:"column:status;not null;default:pending"`
}

func (InvoiceEntity) TableName() string {
	return "invoices"
}

func toInvoiceEntity(m *model.Invoice) *InvoiceEntity {
	if m == nil {
		return nil
	}
	e := &InvoiceEntity{
		InvoiceNo:  m.InvoiceNo,
		MemberID:   m.MemberID,
		Period:     m.Period,
		Type:       m.Type,
		Amount:     m.Amount,
		PaidAmount: m.PaidAmount,
		DueDate:    m.DueDate,
		Status:     string(m.Status),
	}
	e.ID = m.ID
	return e
}

func toInvoiceModel(e *InvoiceEntity) *model.Invoice {
	if e == nil {
		return nil
	}
	return &model.Invoice{
		ID:         e.ID,
		InvoiceNo:  e.InvoiceNo,
		MemberID:   e.MemberID,
		Amount:     e.Amount,
		PaidAmount: e.PaidAmount,
		Period:     e.Period,
		DueDate:    e.DueDate,
		Status:     model.InvoiceStatus(e.Status),
		Type:       e.Type,
		CreatedAt:  e.CreatedAt,
	}
}
