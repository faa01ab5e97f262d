package repository

import (
	"context"

	"cognis/internal/domain"

	"gorm.io/gorm"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.UploadedFile, error) {
	var f domain.UploadedFile
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&f)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &f, nil
}

func (r *FileRepository) GetByHash(ctx context.Context, hash string) (*domain.UploadedFile, error) {
	var f domain.UploadedFile
	tx := r.db.WithContext(ctx).Where("content_hash = ?", hash).First(&f)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &f, nil
}

// CreateWithArtifacts inserts the file record and its artifacts in one
// transaction. Artifact FileIDs are filled in from f.
func (r *FileRepository) CreateWithArtifacts(ctx context.Context, f *domain.UploadedFile, artifacts []domain.Artifact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Case", "Artifacts").Create(f).Error; err != nil {
			return err
		}
		if len(artifacts) == 0 {
			return nil
		}
		for i := range artifacts {
			artifacts[i].FileID = f.ID
			artifacts[i].CaseID = f.CaseID
		}
		return tx.Create(&artifacts).Error
	})
}

// List returns files newest first. A limit <= 0 returns all of them.
func (r *FileRepository) List(ctx context.Context, limit int) ([]domain.UploadedFile, error) {
	var out []domain.UploadedFile
	q := r.db.WithContext(ctx).Order("uploaded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	tx := q.Find(&out)
	return out, tx.Error
}

func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.UploadedFile{}).Count(&n).Error
	return n, err
}

// Delete removes the file record and its artifacts.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ufdr_file_id = ?", id).Delete(&domain.Artifact{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.UploadedFile{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
