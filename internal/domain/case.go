package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case groups uploaded files under one investigation. Cases are created by
// admins and never modified afterwards.
type Case struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string    `gorm:"column:title;size:255;not null" json:"title"`
	Description *string   `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;index" json:"created_at"`
	CreatedBy   *string   `gorm:"column:created_by;size:36;index" json:"created_by"`

	Creator *User `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"-"`
}

func (Case) TableName() string { return "cases" }

func (c *Case) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
