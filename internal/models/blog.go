package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// StringArray stores a list of strings as a PostgreSQL-style array literal.
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try JSON first, fall back to array-literal parsing
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// Blog post status values.
const (
	BlogStatusDraft     = "draft"
	BlogStatusPublished = "published"
	BlogStatusFailed    = "failed"
)

// GeneratedBlog is the artifact produced by one execution of a schedule.
// Created exclusively by the executor; read-only afterward.
type GeneratedBlog struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	ScheduleID string `gorm:"index;size:36" json:"scheduleId"`
	Portal     string `gorm:"not null;index;size:100" json:"portal"`

	Title       string      `gorm:"not null;size:500" json:"title"`
	Slug        string      `gorm:"size:255;index" json:"slug"`
	Content     string      `gorm:"type:text" json:"content,omitempty"`
	Status      string      `gorm:"size:50;default:'draft'" json:"status"`
	WordCount   int         `gorm:"default:0" json:"wordCount"`
	ImageURL    string      `gorm:"size:1000" json:"imageUrl,omitempty"`
	SEOKeywords StringArray `gorm:"type:text" json:"seoKeywords,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
