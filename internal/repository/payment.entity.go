package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type PaymentEntity struct {
	pg.Model
	InvoiceID     int64           `gorm:"column:invoice_id;not null;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Method        string          `gorm:"column:method;not null"`
	BankAccountID *int64          `gorm:"column:bank_account_id;index"`
	PaidAt        time.Time       `gorm:"column:paid_at;not null"`
}

func (PaymentEntity) TableName() string {
	return "payments"
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:            e.ID,
		InvoiceID:     e.InvoiceID,
		Amount:        e.Amount,
		Method:        model.PaymentMethod(e.Method),
		BankAccountID: e.BankAccountID,
		PaidAt:        e.PaidAt,
		ReceiptNo:     model.ReceiptNo(e.PaidAt, e.ID),
	}
}
