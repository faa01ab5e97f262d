package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ArtifactType string

const (
	ArtifactMessage ArtifactType = "message"
	ArtifactContact ArtifactType = "contact"
	ArtifactLog     ArtifactType = "log"
)

// Artifact is a piece of data extracted from an uploaded file. It belongs to
// exactly one file and goes away with it. Embedding is reserved for semantic
// search and is left empty. SearchText is ExtractedText lower-cased in Go so
// keyword matching folds non-ASCII letters on every driver.
type Artifact struct {
	ID            string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	CaseID        *string        `gorm:"column:case_id;size:36;index" json:"case_id"`
	FileID        string         `gorm:"column:ufdr_file_id;size:36;index;not null" json:"ufdr_file_id"`
	Type          ArtifactType   `gorm:"column:type;size:50" json:"type"`
	ExtractedText string         `gorm:"column:extracted_text;type:text" json:"extracted_text"`
	SearchText    string         `gorm:"column:search_text;type:text" json:"-"`
	Raw           datatypes.JSON `gorm:"column:raw" json:"raw,omitempty"`
	Embedding     datatypes.JSON `gorm:"column:embedding" json:"-"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Artifact) TableName() string { return "artifacts" }

func (a *Artifact) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *Artifact) BeforeSave(*gorm.DB) error {
	a.SearchText = strings.ToLower(a.ExtractedText)
	return nil
}
