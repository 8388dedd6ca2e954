package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/models"
)

// ScheduleStore owns persistence of BlogSchedule documents. The executor is
// the only writer of execution bookkeeping fields; handlers never touch them
// directly.
type ScheduleStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewScheduleStore(db *gorm.DB, logger *zap.Logger) *ScheduleStore {
	return &ScheduleStore{db: db, logger: logger}
}

// Create assigns an id and persists the schedule. The caller is expected to
// have derived a consistent cronExpression/nextRunTime pair already.
func (s *ScheduleStore) Create(schedule *models.BlogSchedule) (*models.BlogSchedule, error) {
	if schedule.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if schedule.CronExpression == "" {
		return nil, fmt.Errorf("%w: cronExpression is required", ErrValidation)
	}
	if schedule.Portal == "" {
		return nil, fmt.Errorf("%w: portal is required", ErrValidation)
	}
	if !models.ValidImageStyle(schedule.ImageStyle) {
		return nil, fmt.Errorf("%w: unknown image style %q", ErrValidation, schedule.ImageStyle)
	}

	if schedule.ID == "" {
		schedule.ID = uuid.New().String()
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}
	if schedule.LastStatus == "" {
		schedule.LastStatus = models.StatusNeverExecuted
	}

	if err := s.db.Create(schedule).Error; err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.logger.Info("Schedule created",
		zap.String("id", schedule.ID),
		zap.String("name", schedule.Name),
		zap.String("portal", schedule.Portal),
		zap.String("expression", schedule.CronExpression))

	return schedule, nil
}

// List returns all schedules, optionally filtered to one portal, newest
// first. An empty result is not an error.
func (s *ScheduleStore) List(portal string) ([]models.BlogSchedule, error) {
	var schedules []models.BlogSchedule
	query := s.db.Order("created_at DESC")
	if portal != "" {
		query = query.Where("portal = ?", portal)
	}
	if err := query.Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleStore) Get(id string) (*models.BlogSchedule, error) {
	var schedule models.BlogSchedule
	if err := s.db.First(&schedule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

// Update merges the given fields into the schedule and stamps updatedAt.
func (s *ScheduleStore) Update(id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	result := s.db.Model(&models.BlogSchedule{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete is idempotent: removing an absent id is treated as success.
func (s *ScheduleStore) Delete(id string) error {
	if err := s.db.Delete(&models.BlogSchedule{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) SetActive(id string, active bool) error {
	return s.Update(id, map[string]interface{}{"is_active": active})
}

// Due returns active schedules whose next run instant has passed as of now.
// The comparison uses real timestamps; ISO strings exist only in JSON.
func (s *ScheduleStore) Due(now time.Time) ([]models.BlogSchedule, error) {
	var schedules []models.BlogSchedule
	err := s.db.
		Where("is_active = ? AND next_run_time IS NOT NULL AND next_run_time <= ?", true, now.UTC()).
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	return schedules, nil
}

// Claim takes a short execution lease on a schedule with a conditional write,
// so overlapping poll triggers fire each due period at most once. Returns
// ErrAlreadyClaimed when another poller holds the lease.
func (s *ScheduleStore) Claim(id string, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	result := s.db.Model(&models.BlogSchedule{}).
		Where("id = ? AND is_active = ? AND (claimed_until IS NULL OR claimed_until < ?)", id, true, now).
		Update("claimed_until", now.Add(ttl))
	if result.Error != nil {
		return fmt.Errorf("failed to claim schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, id)
	}
	return nil
}

// Release drops the execution lease. Failures are logged, not surfaced; the
// lease expires on its own either way.
func (s *ScheduleStore) Release(id string) {
	err := s.db.Model(&models.BlogSchedule{}).
		Where("id = ?", id).
		Update("claimed_until", nil).Error
	if err != nil {
		s.logger.Warn("Failed to release schedule claim",
			zap.String("id", id), zap.Error(err))
	}
}
