package pg

import (
	"time"

	"gorm.io/gorm"
)

// Model is embedded by every entity that takes part in the reset lifecycle.
// DeletedAt drives gorm's soft-delete scope, so tombstoned rows are invisible
// to every query that does not ask for Unscoped.
type Model struct {
	ID               int64          `gorm:"primaryKey;autoIncrement;column:id"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"column:deleted_at;index"`
	DeletedByResetID *int64         `gorm:"column:deleted_by_reset_id;index"`
}
