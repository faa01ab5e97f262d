package repository

import (
	"context"
	"time"

	"cognis/internal/domain"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, e *domain.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// Recent returns the newest entries first.
func (r *AuditLogRepository) Recent(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	tx := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out)
	return out, tx.Error
}

// DeleteOlderThan removes entries recorded before cutoff and returns how many
// were deleted.
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&domain.AuditLogEntry{})
	return res.RowsAffected, res.Error
}
