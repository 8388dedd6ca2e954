package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/models"
	"github.com/quillforge/quill/internal/service/social"
	"github.com/quillforge/quill/pkg/cronexpr"
)

// ExecutionResult is what one successful firing returns to its caller.
type ExecutionResult struct {
	ScheduleID    string                 `json:"scheduleId"`
	BlogID        string                 `json:"blogId"`
	BlogTitle     string                 `json:"blogTitle"`
	SocialResults []social.PublishResult `json:"socialMediaResults,omitempty"`
}

// Executor performs one schedule's firing end-to-end: required blog
// generation first, then the best-effort social fan-out, then bookkeeping.
type Executor struct {
	store     *ScheduleStore
	templates *TemplateStore
	generator ContentGenerator
	social    *social.Manager
	db        *gorm.DB
	logger    *zap.Logger
}

func NewExecutor(store *ScheduleStore, templates *TemplateStore, generator ContentGenerator, socialMgr *social.Manager, db *gorm.DB, logger *zap.Logger) *Executor {
	return &Executor{
		store:     store,
		templates: templates,
		generator: generator,
		social:    socialMgr,
		db:        db,
		logger:    logger,
	}
}

// Execute fires one schedule. Unknown ids fail with ErrNotFound and no side
// effects; template and generation failures are recorded as the schedule's
// error status before being surfaced. Social failures never fail the
// execution.
func (e *Executor) Execute(ctx context.Context, scheduleID string) (*ExecutionResult, error) {
	schedule, err := e.store.Get(scheduleID)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	e.logger.Info("Executing schedule",
		zap.String("id", schedule.ID),
		zap.String("name", schedule.Name),
		zap.String("portal", schedule.Portal))

	template, err := e.templates.Resolve(schedule.Portal, schedule.TemplateID)
	if err != nil {
		e.recordFailure(schedule, startedAt, err)
		return nil, err
	}

	blog, err := e.generator.GenerateBlog(ctx, GenerateRequest{
		Template:      template,
		Keywords:      schedule.Keywords(),
		Portal:        schedule.Portal,
		ScheduleID:    schedule.ID,
		GenerateImage: schedule.GenerateImage,
		ImageStyle:    schedule.ImageStyle,
	})
	if err != nil {
		e.recordFailure(schedule, startedAt, err)
		return nil, err
	}

	if err := e.db.Create(blog).Error; err != nil {
		err = fmt.Errorf("failed to persist generated blog: %w", err)
		e.recordFailure(schedule, startedAt, err)
		return nil, err
	}

	result := &ExecutionResult{
		ScheduleID: schedule.ID,
		BlogID:     blog.ID,
		BlogTitle:  blog.Title,
	}

	// Best-effort branch: the execution reports blog-post success even when
	// every social post fails.
	if schedule.GenerateSocial && e.social != nil {
		result.SocialResults = e.social.GenerateAndPublish(ctx, blog)
	}

	e.recordSuccess(schedule, startedAt, blog)

	return result, nil
}

// recordSuccess writes the execution bookkeeping: count, timestamps, status,
// the next fire instant, and the one-shot deactivation.
func (e *Executor) recordSuccess(schedule *models.BlogSchedule, startedAt time.Time, blog *models.GeneratedBlog) {
	now := time.Now().UTC()
	summary := fmt.Sprintf("generated blog %s (%q)", blog.ID, blog.Title)

	fields := map[string]interface{}{
		"execution_count": schedule.ExecutionCount + 1,
		"last_executed":   now,
		"last_status":     models.StatusSuccess,
		"last_result":     summary,
		"last_error":      "",
		"claimed_until":   nil,
	}

	if e.isOneShot(schedule) {
		fields["is_active"] = false
		fields["next_run_time"] = nil
	} else if next, err := cronexpr.NextRun(schedule.CronExpression, now); err == nil {
		fields["next_run_time"] = next
	} else {
		e.logger.Error("Failed to compute next run time",
			zap.String("id", schedule.ID),
			zap.String("expression", schedule.CronExpression),
			zap.Error(err))
	}

	if err := e.store.Update(schedule.ID, fields); err != nil {
		e.logger.Error("Failed to record execution success",
			zap.String("id", schedule.ID), zap.Error(err))
	}

	e.recordHistory(schedule, startedAt, true, blog.ID, summary, "")
}

// recordFailure sets the error status before the failure is surfaced. A
// failure to even write the update is logged, not re-raised.
func (e *Executor) recordFailure(schedule *models.BlogSchedule, startedAt time.Time, cause error) {
	err := e.store.Update(schedule.ID, map[string]interface{}{
		"last_status":   models.StatusError,
		"last_error":    cause.Error(),
		"claimed_until": nil,
	})
	if err != nil {
		e.logger.Error("Failed to record execution failure",
			zap.String("id", schedule.ID), zap.Error(err))
	}

	e.recordHistory(schedule, startedAt, false, "", "", cause.Error())
}

func (e *Executor) recordHistory(schedule *models.BlogSchedule, startedAt time.Time, success bool, blogID, result, errMsg string) {
	record := &models.ExecutionRecord{
		ScheduleID: schedule.ID,
		Portal:     schedule.Portal,
		Success:    success,
		BlogID:     blogID,
		Result:     result,
		Error:      errMsg,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if err := e.db.Create(record).Error; err != nil {
		e.logger.Error("Failed to persist execution record",
			zap.String("id", schedule.ID), zap.Error(err))
	}
}

// isOneShot derives one-time-ness from the recorded frequency; schedules
// created from a raw cron string with no frequency fall back to the pinned
// expression check.
func (e *Executor) isOneShot(schedule *models.BlogSchedule) bool {
	if schedule.Frequency != "" {
		return cronexpr.Frequency(schedule.Frequency) == cronexpr.FrequencyOnce
	}
	return cronexpr.Pinned(schedule.CronExpression)
}
