package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/models"
)

// JobSummary is the per-schedule line in the status overview.
type JobSummary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Portal         string     `json:"portal"`
	CronExpression string     `json:"cronExpression"`
	NextRunTime    *time.Time `json:"nextRunTime"`
	ExecutionCount int        `json:"executionCount"`
	LastStatus     string     `json:"lastStatus"`
}

// StatusOverview aggregates scheduler-wide counters. Zero matches yield a
// zeroed result, never an error.
type StatusOverview struct {
	TotalSchedules       int64        `json:"totalSchedules"`
	ActiveSchedules      int64        `json:"activeSchedules"`
	TotalExecutions      int64        `json:"totalExecutions"`
	SuccessfulExecutions int64        `json:"successfulExecutions"`
	FailedExecutions     int64        `json:"failedExecutions"`
	ActiveJobs           []JobSummary `json:"activeJobs"`
}

// OverviewService serves the status and history read paths.
type OverviewService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewOverviewService(db *gorm.DB, logger *zap.Logger) *OverviewService {
	return &OverviewService{db: db, logger: logger}
}

func (s *OverviewService) GetOverview() (*StatusOverview, error) {
	overview := &StatusOverview{ActiveJobs: []JobSummary{}}

	if err := s.db.Model(&models.BlogSchedule{}).Count(&overview.TotalSchedules).Error; err != nil {
		return nil, fmt.Errorf("failed to count schedules: %w", err)
	}
	if err := s.db.Model(&models.BlogSchedule{}).Where("is_active = ?", true).Count(&overview.ActiveSchedules).Error; err != nil {
		return nil, fmt.Errorf("failed to count active schedules: %w", err)
	}
	if err := s.db.Model(&models.ExecutionRecord{}).Count(&overview.TotalExecutions).Error; err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}
	if err := s.db.Model(&models.ExecutionRecord{}).Where("success = ?", true).Count(&overview.SuccessfulExecutions).Error; err != nil {
		return nil, fmt.Errorf("failed to count successful executions: %w", err)
	}
	overview.FailedExecutions = overview.TotalExecutions - overview.SuccessfulExecutions

	var active []models.BlogSchedule
	if err := s.db.Where("is_active = ?", true).Order("next_run_time ASC").Find(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	for _, schedule := range active {
		overview.ActiveJobs = append(overview.ActiveJobs, JobSummary{
			ID:             schedule.ID,
			Name:           schedule.Name,
			Portal:         schedule.Portal,
			CronExpression: schedule.CronExpression,
			NextRunTime:    schedule.NextRunTime,
			ExecutionCount: schedule.ExecutionCount,
			LastStatus:     schedule.LastStatus,
		})
	}

	return overview, nil
}

// GeneratedBlogs returns posts produced by one schedule, newest first.
// Content is stripped unless includeContent is set.
func (s *OverviewService) GeneratedBlogs(scheduleID string, limit int, status string, includeContent bool) ([]models.GeneratedBlog, error) {
	query := s.db.Where("schedule_id = ?", scheduleID).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var blogs []models.GeneratedBlog
	if err := query.Find(&blogs).Error; err != nil {
		return nil, fmt.Errorf("failed to list generated blogs: %w", err)
	}

	if !includeContent {
		for i := range blogs {
			blogs[i].Content = ""
		}
	}

	return blogs, nil
}

// ExecutionHistory returns one schedule's execution records, newest first.
func (s *OverviewService) ExecutionHistory(scheduleID string, limit int) ([]models.ExecutionRecord, error) {
	query := s.db.Where("schedule_id = ?", scheduleID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.ExecutionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list execution history: %w", err)
	}
	return records, nil
}
