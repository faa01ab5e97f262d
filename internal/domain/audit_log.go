package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogEntry records one HTTP request. Rows are append-only. UserID is the
// caller resolved by the auth guard, if any; it is not a foreign key so
// entries outlive deleted users.
type AuditLogEntry struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Method     string    `gorm:"column:method;size:10;not null" json:"method"`
	Path       string    `gorm:"column:path;not null" json:"path"`
	StatusCode int       `gorm:"column:status_code;not null" json:"status_code"`
	Timestamp  time.Time `gorm:"column:timestamp;index" json:"timestamp"`
	UserAgent  *string   `gorm:"column:user_agent" json:"user_agent"`
	UserID     *string   `gorm:"column:user_id;size:36;index" json:"user_id,omitempty"`
}

func (AuditLogEntry) TableName() string { return "audit_logs" }

func (e *AuditLogEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
