package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/quillforge/quill/pkg/util"
)

// Execution status values recorded on a schedule.
const (
	StatusSuccess       = "success"
	StatusError         = "error"
	StatusNeverExecuted = "never_executed"
)

// ImageStyles lists the accepted image generation styles.
var ImageStyles = []string{"photorealistic", "illustration", "minimalist", "watercolor", "3d_render"}

// ValidImageStyle reports whether style is empty or one of ImageStyles.
func ValidImageStyle(style string) bool {
	if style == "" {
		return true
	}
	for _, s := range ImageStyles {
		if s == style {
			return true
		}
	}
	return false
}

// BlogSchedule describes when and how to generate content automatically for
// one portal. The cron expression is always derived from the frequency and
// time-of-day fields; the two representations never diverge.
type BlogSchedule struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"not null;size:255" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	CronExpression string `gorm:"not null;size:100" json:"cronExpression"`
	Timezone       string `gorm:"size:64;default:'UTC'" json:"timezone"`
	Frequency      string `gorm:"size:20" json:"frequency"`
	DayOfWeek      *int   `json:"dayOfWeek,omitempty"`

	Portal   string `gorm:"not null;index;size:100" json:"portal"`
	IsActive bool   `gorm:"default:true;index" json:"isActive"`

	NextRunTime    *time.Time `gorm:"index" json:"nextRunTime"`
	ExecutionCount int        `gorm:"default:0" json:"executionCount"`

	GenerateImage  bool   `gorm:"default:false" json:"generateImage"`
	ImageStyle     string `gorm:"size:50" json:"imageStyle"`
	TemplateID     string `gorm:"size:36" json:"templateId"`
	Keyword        string `gorm:"size:255" json:"keyword"`
	GenerateSocial bool   `gorm:"default:false" json:"generateSocial"`

	LastExecuted *time.Time `json:"lastExecuted"`
	LastStatus   string     `gorm:"size:20;default:'never_executed'" json:"lastStatus"`
	LastResult   string     `gorm:"type:text" json:"lastResult"`
	LastError    string     `gorm:"type:text" json:"lastError"`

	// ClaimedUntil is the execution lease: a poller must claim a schedule
	// with a conditional write before executing it, so concurrent poll
	// triggers cannot double-fire the same due period.
	ClaimedUntil *time.Time `json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Keywords returns the seed keyword list for generation, parsed from the
// comma-separated keyword field.
func (s *BlogSchedule) Keywords() []string {
	return util.ParseKeywords(s.Keyword)
}
