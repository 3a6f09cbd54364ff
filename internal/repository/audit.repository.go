package repository

import (
	"context"

	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

type AuditRepository struct {
	*pg.DB
}

func NewAuditRepository(db *pg.DB) *AuditRepository {
	return &AuditRepository{db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditEntry) error {
	e := &AuditLogEntity{
		Action:   entry.Action,
		Actor:    entry.Actor,
		Entity:   entry.Entity,
		EntityID: entry.EntityID,
		Details:  entry.Details,
	}
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return err
	}
	entry.ID = e.ID
	entry.CreatedAt = e.CreatedAt
	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entity string, entityID int64) ([]*model.AuditEntry, error) {
	var entities []*AuditLogEntity
	err := r.Read(ctx).Where("entity = ? AND entity_id = ?", entity, entityID).Order("id ASC").Find(&entities).Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.AuditEntry, len(entities))
	for i, e := range entities {
		out[i] = toAuditEntryModel(e)
	}
	return out, nil
}
