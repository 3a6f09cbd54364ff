package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

var (
	ErrResetNotFound   = errors.New("reset request not found")
	ErrResetNotPending = errors.New("reset request is not pending")
	ErrRestoreConflict = errors.New("restored row collides with a live row")
)

type tombstoneTable struct {
	name  string
	model interface{}
}

// purgeOrder lists the reset-managed tables children first, so hard deletes
// never violate a foreign key.
var purgeOrder = []tombstoneTable{
	{"payments", &PaymentEntity{}},
	{"ledger_entries", &LedgerEntryEntity{}},
	{"invoices", &InvoiceEntity{}},
	{"donations", &DonationEntity{}},
	{"expenses", &ExpenseEntity{}},
	{"incomes", &IncomeEntity{}},
	{"members", &MemberEntity{}},
	{"categories", &CategoryEntity{}},
	{"bank_accounts", &BankAccountEntity{}},
}

// TombstoneTables names the tables a factory reset touches, in purge order.
func TombstoneTables() []string {
	names := make([]string, len(purgeOrder))
	for i, t := range purgeOrder {
		names[i] = t.name
	}
	return names
}

type ResetRepository struct {
	*pg.DB
}

func NewResetRepository(db *pg.DB) *ResetRepository {
	return &ResetRepository{db}
}

func (r *ResetRepository) Create(ctx context.Context, req *model.ResetRequest) (*model.ResetRequest, error) {
	e := &ResetRequestEntity{
		RequestedBy:  req.RequestedBy,
		Reason:       req.Reason,
		Status:       string(model.ResetPending),
		AutoDeleteAt: req.AutoDeleteAt.UTC(),
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return toResetRequestModel(e), nil
}

func (r *ResetRepository) Get(ctx context.Context, id int64) (*model.ResetRequest, error) {
	var e ResetRequestEntity
	if err := r.Write(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetNotFound
		}
		return nil, err
	}
	return toResetRequestModel(&e), nil
}

func (r *ResetRepository) List(ctx context.Context) ([]*model.ResetRequest, error) {
	var entities []*ResetRequestEntity
	if err := r.Read(ctx).Order("id DESC").Find(&entities).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ResetRequest, len(entities))
	for i, e := range entities {
		out[i] = toResetRequestModel(e)
	}
	return out, nil
}

// ListExpired returns pending requests whose recovery window closed at or
// before now.
func (r *ResetRepository) ListExpired(ctx context.Context, now time.Time) ([]*model.ResetRequest, error) {
	var entities []*ResetRequestEntity
	err := r.Read(ctx).
		Where("status = ? AND auto_delete_at <= ?", string(model.ResetPending), now.UTC()).
		Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.ResetRequest, len(entities))
	for i, e := range entities {
		out[i] = toResetRequestModel(e)
	}
	return out, nil
}

func (r *ResetRepository) SetAffectedRows(ctx context.Context, id int64, n int64) error {
	return r.Write(ctx).Model(&ResetRequestEntity{}).Where("id = ?", id).Update("affected_rows", n).Error
}

// Resolve moves a pending request to status. Only one caller can win the
// transition; the others get ErrResetNotPending.
func (r *ResetRepository) Resolve(ctx context.Context, id int64, status model.ResetStatus, at time.Time) error {
	at = at.UTC()
	result := r.Write(ctx).
		Model(&ResetRequestEntity{}).
		Where("id = ? AND status = ?", id, string(model.ResetPending)).
		Updates(map[string]interface{}{
			"status":      string(status),
			"resolved_at": &at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrResetNotPending
	}
	return nil
}

// Stamp tombstones every live row of every reset-managed table with resetID.
// Each table is a separate statement; a rerun only touches rows still live.
func (r *ResetRepository) Stamp(ctx context.Context, resetID int64, at time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, len(purgeOrder))
	for _, t := range purgeOrder {
		result := r.Write(ctx).
			Model(t.model).
			Where("1 = 1").
			UpdateColumns(map[string]interface{}{
				"deleted_at":          at.UTC(),
				"deleted_by_reset_id": resetID,
			})
		if result.Error != nil {
			return counts, result.Error
		}
		counts[t.name] = result.RowsAffected
	}
	return counts, nil
}

// Restore clears the tombstones carried by resetID.
func (r *ResetRepository) Restore(ctx context.Context, resetID int64) (map[string]int64, error) {
	counts := make(map[string]int64, len(purgeOrder))
	for _, t := range purgeOrder {
		result := r.Write(ctx).
			Unscoped().
			Model(t.model).
			Where("deleted_by_reset_id = ?", resetID).
			UpdateColumns(map[string]interface{}{
				"deleted_at":          nil,
				"deleted_by_reset_id": nil,
			})
		if result.Error != nil {
			if pg.IsDuplicate(result.Error) {
				return counts, ErrRestoreConflict
			}
			return counts, result.Error
		}
		counts[t.name] = result.RowsAffected
	}
	return counts, nil
}

// Purge hard-deletes every row carrying resetID, children first.
func (r *ResetRepository) Purge(ctx context.Context, resetID int64) (map[string]int64, error) {
	counts := make(map[string]int64, len(purgeOrder))
	for _, t := range purgeOrder {
		result := r.Write(ctx).
			Unscoped().
			Where("deleted_by_reset_id = ?", resetID).
			Delete(t.model)
		if result.Error != nil {
			return counts, result.Error
		}
		counts[t.name] = result.RowsAffected
	}
	return counts, nil
}

func (r *ResetRepository) CountTombstoned(ctx context.Context, resetID int64) (int64, error) {
	var total int64
	for _, t := range purgeOrder {
		var n int64
		err := r.Read(ctx).Unscoped().Model(t.model).Where("deleted_by_reset_id = ?", resetID).Count(&n).Error
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
