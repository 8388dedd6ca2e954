package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quillforge/quill/internal/models"
	"github.com/quillforge/quill/internal/service"
	"github.com/quillforge/quill/pkg/cronexpr"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// statusFor maps the service error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoTemplate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type createFromTimeRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	UTCTime        string `json:"utcTime" binding:"required"`
	Frequency      string `json:"frequency" binding:"required"`
	DayOfWeek      *int   `json:"dayOfWeek"`
	DayOfMonth     *int   `json:"dayOfMonth"`
	Timezone       string `json:"timezone"`
	Portal         string `json:"portal"`
	GenerateImage  bool   `json:"generateImage"`
	ImageStyle     string `json:"imageStyle"`
	IsActive       *bool  `json:"isActive"`
	TemplateID     string `json:"templateId"`
	Keyword        string `json:"keyword"`
	GenerateSocial bool   `json:"generateSocial"`
}

func (s *Server) handleCreateFromTime(c *gin.Context) {
	var req createFromTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	at, err := time.Parse(time.RFC3339, req.UTCTime)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	recurrence, err := cronexpr.New(at, cronexpr.Frequency(req.Frequency), req.DayOfWeek, req.DayOfMonth)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	nextRun, err := nextRunFor(recurrence, at)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	schedule := &models.BlogSchedule{
		Name:           req.Name,
		Description:    req.Description,
		CronExpression: recurrence.Expression(),
		Timezone:       "UTC",
		Frequency:      string(recurrence.Frequency),
		DayOfWeek:      req.DayOfWeek,
		Portal:         req.Portal,
		IsActive:       isActive,
		NextRunTime:    &nextRun,
		GenerateImage:  req.GenerateImage,
		ImageStyle:     req.ImageStyle,
		TemplateID:     req.TemplateID,
		Keyword:        req.Keyword,
		GenerateSocial: req.GenerateSocial,
	}

	created, err := s.Schedules.Create(schedule)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	respondOK(c, created)
}

// createRequest whitelists the fields a caller may set on a new schedule.
// Execution bookkeeping (count, last status/result) belongs to the executor.
type createRequest struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	CronExpression string     `json:"cronExpression"`
	Timezone       string     `json:"timezone"`
	Frequency      string     `json:"frequency"`
	DayOfWeek      *int       `json:"dayOfWeek"`
	Portal         string     `json:"portal"`
	IsActive       *bool      `json:"isActive"`
	NextRunTime    *time.Time `json:"nextRunTime"`
	GenerateImage  bool       `json:"generateImage"`
	ImageStyle     string     `json:"imageStyle"`
	TemplateID     string     `json:"templateId"`
	Keyword        string     `json:"keyword"`
	GenerateSocial bool       `json:"generateSocial"`
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	schedule := models.BlogSchedule{
		Name:           req.Name,
		Description:    req.Description,
		CronExpression: req.CronExpression,
		Timezone:       req.Timezone,
		Frequency:      req.Frequency,
		DayOfWeek:      req.DayOfWeek,
		Portal:         req.Portal,
		IsActive:       true,
		NextRunTime:    req.NextRunTime,
		GenerateImage:  req.GenerateImage,
		ImageStyle:     req.ImageStyle,
		TemplateID:     req.TemplateID,
		Keyword:        req.Keyword,
		GenerateSocial: req.GenerateSocial,
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if schedule.CronExpression != "" {
		derived, err := cronexpr.Infer(schedule.CronExpression)
		if err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		// The expression and frequency are two renderings of the same
		// recurrence; a raw-cron create fills the frequency in, a stated one
		// must agree.
		if schedule.Frequency == "" {
			schedule.Frequency = string(derived)
		} else if cronexpr.Frequency(schedule.Frequency) != derived {
			respondError(c, http.StatusBadRequest,
				fmt.Errorf("frequency %q does not match cron expression %q", schedule.Frequency, schedule.CronExpression))
			return
		}
		if schedule.NextRunTime == nil {
			if next, err := cronexpr.NextRun(schedule.CronExpression, time.Now().UTC()); err == nil {
				schedule.NextRunTime = &next
			}
		}
	}

	created, err := s.Schedules.Create(&schedule)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	respondOK(c, created)
}

type scheduleImmediateRequest struct {
	Name           string `json:"name"`
	Portal         string `json:"portal" binding:"required"`
	TemplateID     string `json:"templateId"`
	Keyword        string `json:"keyword"`
	GenerateImage  bool   `json:"generateImage"`
	ImageStyle     string `json:"imageStyle"`
	GenerateSocial bool   `json:"generateSocial"`
}

// handleScheduleImmediate creates a one-shot schedule that is already due,
// so the next poll cycle picks it up.
func (s *Server) handleScheduleImmediate(c *gin.Context) {
	var req scheduleImmediateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	recurrence, err := cronexpr.New(now, cronexpr.FrequencyOnce, nil, nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	name := req.Name
	if name == "" {
		name = "Immediate run " + now.Format(time.RFC3339)
	}

	dueAt := now.Truncate(time.Minute)
	schedule := &models.BlogSchedule{
		Name:           name,
		CronExpression: recurrence.Expression(),
		Timezone:       "UTC",
		Frequency:      string(cronexpr.FrequencyOnce),
		Portal:         req.Portal,
		IsActive:       true,
		NextRunTime:    &dueAt,
		GenerateImage:  req.GenerateImage,
		ImageStyle:     req.ImageStyle,
		TemplateID:     req.TemplateID,
		Keyword:        req.Keyword,
		GenerateSocial: req.GenerateSocial,
	}

	created, err := s.Schedules.Create(schedule)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	respondOK(c, created)
}

func (s *Server) handleList(c *gin.Context) {
	schedules, err := s.Schedules.List(c.Query("portal"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, schedules)
}

func (s *Server) handleGet(c *gin.Context) {
	schedule, err := s.Schedules.Get(c.Param("id"))
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, schedule)
}

// updatableFields maps JSON field names onto schedule columns. Bookkeeping
// fields are deliberately absent: the executor is their only writer.
var updatableFields = map[string]string{
	"name":           "name",
	"description":    "description",
	"cronExpression": "cron_expression",
	"frequency":      "frequency",
	"dayOfWeek":      "day_of_week",
	"portal":         "portal",
	"isActive":       "is_active",
	"generateImage":  "generate_image",
	"imageStyle":     "image_style",
	"templateId":     "template_id",
	"keyword":        "keyword",
	"generateSocial": "generate_social",
}

func (s *Server) handleUpdate(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	fields := make(map[string]interface{})
	for key, value := range body {
		if column, ok := updatableFields[key]; ok {
			fields[column] = value
		}
	}

	// A changed expression moves the next fire instant with it.
	newExpr, exprChanged := "", false
	if raw, ok := fields["cron_expression"]; ok {
		expr, ok := raw.(string)
		if !ok {
			respondError(c, http.StatusBadRequest, errors.New("cronExpression must be a string"))
			return
		}
		if err := cronexpr.Validate(expr); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		if next, err := cronexpr.NextRun(expr, time.Now().UTC()); err == nil {
			fields["next_run_time"] = next
		}
		newExpr, exprChanged = expr, true
	}

	// The expression and frequency must stay two renderings of the same
	// recurrence: an expression change re-derives the frequency, and a
	// supplied frequency must agree with whichever expression ends up stored.
	rawFreq, freqSupplied := fields["frequency"]
	if exprChanged || freqSupplied {
		expr := newExpr
		if !exprChanged {
			schedule, err := s.Schedules.Get(c.Param("id"))
			if err != nil {
				respondError(c, statusFor(err), err)
				return
			}
			expr = schedule.CronExpression
		}
		if freqSupplied {
			freq, ok := rawFreq.(string)
			if !ok {
				respondError(c, http.StatusBadRequest, errors.New("frequency must be a string"))
				return
			}
			if freq != "" {
				derived, err := cronexpr.Infer(expr)
				if err != nil {
					respondError(c, http.StatusBadRequest, err)
					return
				}
				if cronexpr.Frequency(freq) != derived {
					respondError(c, http.StatusBadRequest,
						fmt.Errorf("frequency %q does not match cron expression %q", freq, expr))
					return
				}
			}
		} else if derived, err := cronexpr.Infer(expr); err == nil {
			fields["frequency"] = string(derived)
		}
	}

	if raw, ok := fields["image_style"]; ok {
		style, ok := raw.(string)
		if !ok {
			respondError(c, http.StatusBadRequest, errors.New("imageStyle must be a string"))
			return
		}
		if !models.ValidImageStyle(style) {
			respondError(c, http.StatusBadRequest, fmt.Errorf("unknown image style %q", style))
			return
		}
	}

	if len(fields) == 0 {
		respondError(c, http.StatusBadRequest, errors.New("no updatable fields in request"))
		return
	}

	if err := s.Schedules.Update(c.Param("id"), fields); err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	respondOK(c, gin.H{"id": c.Param("id")})
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.Schedules.Delete(c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, gin.H{"id": c.Param("id")})
}

func (s *Server) handleStart(c *gin.Context) {
	s.setActive(c, true)
}

func (s *Server) handleStop(c *gin.Context) {
	s.setActive(c, false)
}

func (s *Server) setActive(c *gin.Context, active bool) {
	if err := s.Schedules.SetActive(c.Param("id"), active); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, gin.H{"id": c.Param("id"), "isActive": active})
}

func (s *Server) handleExecute(c *gin.Context) {
	result, err := s.Executor.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, result)
}

type convertTimeRequest struct {
	UTCTime    string `json:"utcTime" binding:"required"`
	Frequency  string `json:"frequency" binding:"required"`
	DayOfWeek  *int   `json:"dayOfWeek"`
	DayOfMonth *int   `json:"dayOfMonth"`
	Timezone   string `json:"timezone"`
}

func (s *Server) handleConvertTimeToCron(c *gin.Context) {
	var req convertTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	at, err := time.Parse(time.RFC3339, req.UTCTime)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	recurrence, err := cronexpr.New(at, cronexpr.Frequency(req.Frequency), req.DayOfWeek, req.DayOfMonth)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	nextRun, err := nextRunFor(recurrence, at)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	respondOK(c, gin.H{
		"cronExpression": recurrence.Expression(),
		"nextRunTime":    nextRun,
		"frequency":      string(recurrence.Frequency),
		"timezone":       "UTC",
		"originalTime":   req.UTCTime,
		"explanation":    recurrence.Explain(),
	})
}

type validateCronRequest struct {
	CronExpression string `json:"cronExpression" binding:"required"`
}

func (s *Server) handleValidateCron(c *gin.Context) {
	var req validateCronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := cronexpr.Validate(req.CronExpression); err != nil {
		respondOK(c, gin.H{"valid": false, "error": err.Error()})
		return
	}

	next, err := cronexpr.NextRun(req.CronExpression, time.Now().UTC())
	if err != nil {
		respondOK(c, gin.H{"valid": false, "error": err.Error()})
		return
	}

	respondOK(c, gin.H{"valid": true, "nextRunTime": next})
}

func (s *Server) handleStatusOverview(c *gin.Context) {
	overview, err := s.Overview.GetOverview()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, overview)
}

func (s *Server) handleGeneratedBlogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	includeContent := c.Query("includeContent") == "true"

	blogs, err := s.Overview.GeneratedBlogs(c.Param("id"), limit, c.Query("status"), includeContent)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, blogs)
}

func (s *Server) handleExecutionHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := s.Overview.ExecutionHistory(c.Param("id"), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, records)
}

// handleCheckSchedules is the poller entry point. It always returns 200:
// zero due schedules is a no-op result, and per-schedule failures are
// reported inside the batch, never as an HTTP error.
func (s *Server) handleCheckSchedules(c *gin.Context) {
	result := s.Poller.CheckSchedules(c.Request.Context())
	if result.SchedulesToExecute > 0 {
		s.Logger.Info("Check-schedules batch completed",
			zap.Int("executed", result.SchedulesToExecute))
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListTemplates(c *gin.Context) {
	templates, err := s.Templates.ListByPortal(c.Query("portal"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, templates)
}

func (s *Server) handleCreateTemplate(c *gin.Context) {
	var template models.BlogTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	created, err := s.Templates.Create(&template)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, created)
}

// nextRunFor picks the first fire instant for a fresh recurrence: the pinned
// instant itself for one-shot schedules, the next occurrence after now for
// recurring ones.
func nextRunFor(recurrence cronexpr.Recurrence, at time.Time) (time.Time, error) {
	if recurrence.OneShot() {
		return at.UTC().Truncate(time.Minute), nil
	}
	return recurrence.Next(time.Now().UTC())
}
