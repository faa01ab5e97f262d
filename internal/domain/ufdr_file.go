package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadedFile is a stored UFDR export. ContentHash is the hex SHA-256 of the
// file bytes and is unique across all files; Meta always carries the same
// value under "hash".
type UploadedFile struct {
	ID          string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	CaseID      *string        `gorm:"column:case_id;size:36;index" json:"case_id"`
	Filename    string         `gorm:"column:filename;not null" json:"filename"`
	StoragePath string         `gorm:"column:storage_path;not null" json:"-"`
	Meta        datatypes.JSON `gorm:"column:meta" json:"meta"`
	ContentHash string         `gorm:"column:content_hash;size:64;uniqueIndex;not null" json:"hash"`
	UploadedBy  *string        `gorm:"column:uploaded_by;size:36;index" json:"uploaded_by"`
	SizeBytes   int64          `gorm:"column:size_bytes" json:"size_bytes"`
	UploadedAt  time.Time      `gorm:"column:uploaded_at;autoCreateTime;index" json:"uploaded_at"`

	Case      *Case      `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"-"`
	Artifacts []Artifact `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UploadedFile) TableName() string { return "ufdr_files" }

func (f *UploadedFile) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// UploadedByUser reports whether userID uploaded the file.
func (f *UploadedFile) UploadedByUser(userID string) bool {
	return f.UploadedBy != nil && *f.UploadedBy == userID
}
