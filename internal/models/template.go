package models

import (
	"time"

	"gorm.io/gorm"
)

// PlaceholderTemplateTitle marks an unconfigured template. Templates carrying
// this title are never auto-selected by the executor.
const PlaceholderTemplateTitle = "Untitled Blog"

// BlogTemplate is a pre-existing content record used as the basis for
// generation.
type BlogTemplate struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	Portal string `gorm:"not null;index;size:100" json:"portal"`

	Title   string `gorm:"not null;size:500" json:"title"`
	Outline string `gorm:"type:text" json:"outline"`
	Tone    string `gorm:"size:100" json:"tone"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
