package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var (
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrDuplicateInvoice = errors.New("invoice already exists for member and period")
)

type InvoiceRepository struct {
	*pg.DB
}

func NewInvoiceRepository(db *pg.DB) *InvoiceRepository {
	return &InvoiceRepository{db}
}

// Create inserts the invoice. A live invoice for the same (member, period,
// type) or the same number yields ErrDuplicateInvoice.
func (r *InvoiceRepository) Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	e := toInvoiceEntity(inv)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		if pg.IsDuplicate(err) {
			return nil, ErrDuplicateInvoice
		}
		return nil, err
	}
	return toInvoiceModel(e), nil
}

func (r *InvoiceRepository) Get(ctx context.Context, id int64) (*model.Invoice, error) {
	return r.first(r.Read(ctx).Where("id = ?", id))
}

// GetForUpdate locks the invoice row until the surrounding transaction ends.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id int64) (*model.Invoice, error) {
	return r.first(r.Write(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *InvoiceRepository) FindByMemberPeriod(ctx context.Context, memberID int64, period, invoiceType string) (*model.Invoice, error) {
	return r.first(r.Write(ctx).
		Where("member_id = ? AND period = ? AND type = ?", memberID, period, invoiceType))
}

func (r *InvoiceRepository) first(q *gorm.DB) (*model.Invoice, error) {
	var e InvoiceEntity
	if err := q.First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return toInvoiceModel(&e), nil
}

// AddPayment increments paid_amount server-side and stores the status the
// caller derived while holding the row lock.
func (r *InvoiceRepository) AddPayment(ctx context.Context, id int64, amount decimal.Decimal, status model.InvoiceStatus) error {
	result := r.Write(ctx).
		Model(&InvoiceEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"paid_amount": gorm.Expr("paid_amount + ?", amount),
			"status":      string(status),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepository) ListByPeriod(ctx context.Context, period string) ([]*model.Invoice, error) {
	var entities []*InvoiceEntity
	err := r.Read(ctx).Where("period = ?", period).Order("member_id ASC, id ASC").Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.Invoice, len(entities))
	for i, e := range entities {
		out[i] = toInvoiceModel(e)
	}
	return out, nil
}

func (r *InvoiceRepository) CountByPeriod(ctx context.Context, period string) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&InvoiceEntity{}).Where("period = ?", period).Count(&n).Error
	return n, err
}

// Arrears sums the unpaid balance of open invoices per live member up to and
// including period.
func (r *InvoiceRepository) Arrears(ctx context.Context, period string) ([]*model.ArrearsRow, error) {
	var rows []*model.ArrearsRow
	err := r.Read(ctx).
		Model(&InvoiceEntity{}).
		Select("invoices.member_id AS member_id, members.name AS member_name, "+
			"SUM(invoices.amount - invoices.paid_amount) AS outstanding, "+
			"COUNT(*) AS open_count, MIN(invoices.period) AS oldest_open").
		Joins("JOIN members ON members.id = invoices.member_id AND members.deleted_at IS NULL").
		Where("invoices.status <> ? AND invoices.period <= ?", string(model.InvoicePaid), period).
		Group("invoices.member_id, members.name").
		Order("invoices.member_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
