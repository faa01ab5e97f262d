package repository

import (
	"context"

	"cognis/internal/domain"

	"gorm.io/gorm"
)

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) Create(ctx context.Context, c *domain.Case) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	var c domain.Case
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&c)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &c, nil
}

// List returns all cases, newest first.
func (r *CaseRepository) List(ctx context.Context) ([]domain.Case, error) {
	var out []domain.Case
	tx := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out)
	return out, tx.Error
}

func (r *CaseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Case{}).Count(&n).Error
	return n, err
}
