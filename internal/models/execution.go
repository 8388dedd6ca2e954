package models

import (
	"time"
)

// ExecutionRecord is the persisted history of one schedule firing, backing
// the execution-history endpoint. The schedule's own lastStatus/lastError
// fields always reflect the newest record.
type ExecutionRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ScheduleID string `gorm:"not null;index;size:36" json:"scheduleId"`
	Portal     string `gorm:"size:100" json:"portal"`

	Success bool   `gorm:"index" json:"success"`
	BlogID  string `gorm:"size:36" json:"blogId,omitempty"`
	Result  string `gorm:"type:text" json:"result,omitempty"`
	Error   string `gorm:"type:text" json:"error,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
