package models

import (
	"time"

	"gorm.io/gorm"
)

// SocialNetworks is the fixed platform set social posts fan out to.
var SocialNetworks = []string{"twitter", "facebook", "linkedin", "instagram", "pinterest"}

// Social post status values.
const (
	SocialStatusPending   = "pending"
	SocialStatusPublished = "published"
	SocialStatusFailed    = "failed"
)

// SocialPost is one network-specific post derived from a generated blog.
// Posts are independent documents keyed by id, so per-post publish failures
// never contend with each other.
type SocialPost struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	BlogID  string `gorm:"index;size:36" json:"blogId"`
	Portal  string `gorm:"not null;index;size:100" json:"portal"`
	Network string `gorm:"not null;size:50" json:"network"`
	Account string `gorm:"size:255" json:"account"`

	Content string `gorm:"type:text" json:"content"`
	Status  string `gorm:"size:50;default:'pending'" json:"status"`
	Error   string `gorm:"type:text" json:"error,omitempty"`

	PublishedAt *time.Time     `json:"publishedAt"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
