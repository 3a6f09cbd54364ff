package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var ErrLedgerEntryNotFound = errors.New("ledger entry not found")

type LedgerEntryRepository struct {
	*pg.DB
}

func NewLedgerEntryRepository(db *pg.DB) *LedgerEntryRepository {
	return &LedgerEntryRepository{db}
}

func (r *LedgerEntryRepository) Create(ctx context.Context, p *model.LedgerPosting) (*model.LedgerEntry, error) {
	e := toLedgerEntryEntity(p)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toLedgerEntryModel(e), nil
}

// FindByReference returns the live entry posted for ref.
func (r *LedgerEntryRepository) FindByReference(ctx context.Context, ref model.Reference) (*model.LedgerEntry, error) {
	var e LedgerEntryEntity
	err := r.Write(ctx).
		Where("reference_type = ? AND reference_id = ?", string(ref.Kind), ref.ID).
		Order("id ASC").
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerEntryNotFound
		}
		return nil, err
	}
	return toLedgerEntryModel(&e), nil
}

// Rewrite replaces the posted values of an existing entry. It is only used to
// reconcile an edited source document.
func (r *LedgerEntryRepository) Rewrite(ctx context.Context, id int64, p *model.LedgerPosting) (*model.LedgerEntry, error) {
	result := r.Write(ctx).
		Model(&LedgerEntryEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"date":            p.Date,
			"description":     p.Description,
			"amount":          p.Amount,
			"type":            string(p.Type),
			"category":        p.Category,
			"bank_account_id": p.BankAccountID,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrLedgerEntryNotFound
	}
	var e LedgerEntryEntity
	if err := r.Write(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return toLedgerEntryModel(&e), nil
}

func (r *LedgerEntryRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).Where("id = ?", id).Delete(&LedgerEntryEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLedgerEntryNotFound
	}
	return nil
}

func (r *LedgerEntryRepository) accountScope(q *gorm.DB, accountID int64) *gorm.DB {
	if accountID == 0 {
		return q.Where("bank_account_id IS NULL")
	}
	return q.Where("bank_account_id = ?", accountID)
}

func (r *LedgerEntryRepository) ListByAccount(ctx context.Context, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error) {
	f.Normalize()
	query := func() *gorm.DB {
		q := r.accountScope(r.Read(ctx).Model(&LedgerEntryEntity{}), f.AccountID)
		if f.From != nil {
			q = q.Where("date >= ?", f.From.UTC())
		}
		if f.To != nil {
			q = q.Where("date < ?", f.To.UTC())
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*LedgerEntryEntity
	err := query().Order("date ASC, id ASC").Limit(f.Limit).Offset(f.Offset).Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]*model.LedgerEntry, len(entities))
	for i, e := range entities {
		out[i] = toLedgerEntryModel(e)
	}
	return out, total, nil
}

// NetByAccount folds the live entries of an account: credits minus debits.
func (r *LedgerEntryRepository) NetByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var net decimal.NullDecimal
	err := r.accountScope(r.Read(ctx).Model(&LedgerEntryEntity{}), accountID).
		Select("SUM(CASE WHEN type = ? THEN amount ELSE -amount END)", string(model.Credit)).
		Row().Scan(&net)
	if err != nil {
		return decimal.Zero, err
	}
	if !net.Valid {
		return decimal.Zero, nil
	}
	return net.Decimal, nil
}

func (r *LedgerEntryRepository) CountByReferenceKind(ctx context.Context, kind model.ReferenceKind) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&LedgerEntryEntity{}).Where("reference_type = ?", string(kind)).Count(&n).Error
	return n, err
}
