package repository

import (
	"time"

	"github.com/nimasrn/dues-ledger/internal/model"
)

type ResetRequestEntity struct {
	ID           int64      `gorm:"primaryKey;autoIncrement;column:id"`
	RequestedBy  string     `gorm:"column:requested_by;not null"`
	Reason       string     `gorm:"column:reason;not null"`
	Status       string     `gorm:"column:status;not null;default:pending;index"`
	AutoDeleteAt time.Time  `gorm:"column:auto_delete_at;not null;index"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at"`
	AffectedRows int64      `gorm:"column:affected_rows;not null;default:0"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (ResetRequestEntity) TableName() string {
	return "reset_requests"
}

func toResetRequestModel(e *ResetRequestEntity) *model.ResetRequest {
	if e == nil {
		return nil
	}
	return &model.ResetRequest{
		ID:           e.ID,
		RequestedBy:  e.RequestedBy,
		Reason:       e.Reason,
		Status:       model.ResetStatus(e.Status),
		AutoDeleteAt: e.AutoDeleteAt,
		ResolvedAt:   e.ResolvedAt,
		AffectedRows: e.AffectedRows,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

type AuditLogEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Action    string    `gorm:"column:action;not null;index"`
	Actor     string    `gorm:"column:actor;not null"`
	Entity    string    `gorm:"column:entity;not null"`
	EntityID  int64     `gorm:"column:entity_id"`
	Details   string    `gorm:"column:details"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (AuditLogEntity) TableName() string {
	return "audit_logs"
}

func toAuditEntryModel(e *AuditLogEntity) *model.AuditEntry {
	return &model.AuditEntry{
		ID:        e.ID,
		Action:    e.Action,
		Actor:     e.Actor,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
}
