package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	e := &PaymentEntity{
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		BankAccountID: p.BankAccountID,
		PaidAt:        p.PaidAt,
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toPaymentModel(e), nil
}

func (r *PaymentRepository) Get(ctx context.Context, id int64) (*model.Payment, error) {
	var e PaymentEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return toPaymentModel(&e), nil
}

func (r *PaymentRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	if err := r.Read(ctx).Where("invoice_id = ?", invoiceID).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Payment, len(entities))
	for i, e := range entities {
		out[i] = toPaymentModel(e)
	}
	return out, nil
}

// SumByInvoice totals the live payments of an invoice.
func (r *PaymentRepository) SumByInvoice(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.Read(ctx).
		Model(&PaymentEntity{}).
		Select("SUM(amount)").
		Where("invoice_id = ?", invoiceID).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

type paymentPeriodRow struct {
	PaymentEntity
	MemberID   int64
	MemberName string
	InvoiceNo  string
	Period     string
}

func (r *PaymentRepository) ListByPeriod(ctx context.Context, period string) ([]*model.PaymentView, error) {
	var rows []*paymentPeriodRow
	err := r.Read(ctx).
		Model(&PaymentEntity{}).
		Select("payments.*, invoices.member_id AS member_id, members.name AS member_name, "+
			"invoices.invoice_no AS invoice_no, invoices.period AS period").
		Joins("JOIN invoices ON invoices.id = payments.invoice_id AND invoices.deleted_at IS NULL").
		Joins("JOIN members ON members.id = invoices.member_id AND members.deleted_at IS NULL").
		Where("invoices.period = ?", period).
		Order("payments.paid_at ASC, payments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.PaymentView, len(rows))
	for i, row := range rows {
		out[i] = &model.PaymentView{
			Payment:    *toPaymentModel(&row.PaymentEntity),
			MemberID:   row.MemberID,
			MemberName: row.MemberName,
			InvoiceNo:  row.InvoiceNo,
			Period:     row.Period,
		}
	}
	return out, nil
}
