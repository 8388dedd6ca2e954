// Package client is the typed request surface the presentation layer uses to
// drive the scheduler API. One method per server operation, one round trip
// per call; the server's success/error envelope is surfaced unchanged with
// no retry, caching, or batching behavior.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quillforge/quill/internal/models"
	"github.com/quillforge/quill/internal/service"
	"github.com/quillforge/quill/pkg/cronexpr"
)

const defaultTimeout = 30 * time.Second

// Client talks to one scheduler API endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do performs one request/response round trip. Non-2xx responses become an
// error carrying the server-provided message when present, else a generic
// HTTP status message.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && env.Error != "" {
			return fmt.Errorf("%s", env.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// CreateFromTimeRequest mirrors the create-from-time endpoint body.
type CreateFromTimeRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	UTCTime        string `json:"utcTime"`
	Frequency      string `json:"frequency"`
	DayOfWeek      *int   `json:"dayOfWeek,omitempty"`
	DayOfMonth     *int   `json:"dayOfMonth,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	Portal         string `json:"portal,omitempty"`
	GenerateImage  bool   `json:"generateImage,omitempty"`
	ImageStyle     string `json:"imageStyle,omitempty"`
	IsActive       *bool  `json:"isActive,omitempty"`
	TemplateID     string `json:"templateId,omitempty"`
	Keyword        string `json:"keyword,omitempty"`
	GenerateSocial bool   `json:"generateSocial,omitempty"`
}

func (c *Client) CreateFromTime(ctx context.Context, req CreateFromTimeRequest) (*models.BlogSchedule, error) {
	var schedule models.BlogSchedule
	if err := c.do(ctx, http.MethodPost, "/api/v1/scheduler/create-from-time", req, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) Create(ctx context.Context, schedule *models.BlogSchedule) (*models.BlogSchedule, error) {
	var created models.BlogSchedule
	if err := c.do(ctx, http.MethodPost, "/api/v1/scheduler/create", schedule, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) List(ctx context.Context, portal string) ([]models.BlogSchedule, error) {
	path := "/api/v1/scheduler/list"
	if portal != "" {
		path += "?portal=" + url.QueryEscape(portal)
	}
	var schedules []models.BlogSchedule
	if err := c.do(ctx, http.MethodGet, path, nil, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.BlogSchedule, error) {
	var schedule models.BlogSchedule
	if err := c.do(ctx, http.MethodGet, "/api/v1/scheduler/"+url.PathEscape(id), nil, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return c.do(ctx, http.MethodPut, "/api/v1/scheduler/"+url.PathEscape(id), fields, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/scheduler/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Start(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/scheduler/"+url.PathEscape(id)+"/start", nil, nil)
}

func (c *Client) Stop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/scheduler/"+url.PathEscape(id)+"/stop", nil, nil)
}

func (c *Client) ExecuteNow(ctx context.Context, id string) (*service.ExecutionResult, error) {
	var result service.ExecutionResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/scheduler/"+url.PathEscape(id)+"/execute", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConvertTimeToCronResponse mirrors the convert-time-to-cron endpoint body.
type ConvertTimeToCronResponse struct {
	CronExpression string    `json:"cronExpression"`
	NextRunTime    time.Time `json:"nextRunTime"`
	Frequency      string    `json:"frequency"`
	Timezone       string    `json:"timezone"`
	OriginalTime   string    `json:"originalTime"`
	Explanation    string    `json:"explanation"`
}

func (c *Client) ConvertTimeToCron(ctx context.Context, utcTime, frequency string, dayOfWeek *int) (*ConvertTimeToCronResponse, error) {
	req := map[string]interface{}{
		"utcTime":   utcTime,
		"frequency": frequency,
	}
	if dayOfWeek != nil {
		req["dayOfWeek"] = *dayOfWeek
	}
	var resp ConvertTimeToCronResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/scheduler/convert-time-to-cron", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CronValidation mirrors the validate-cron endpoint body.
type CronValidation struct {
	Valid       bool       `json:"valid"`
	NextRunTime *time.Time `json:"nextRunTime,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (c *Client) ValidateCron(ctx context.Context, expression string) (*CronValidation, error) {
	req := map[string]string{"cronExpression": expression}
	var resp CronValidation
	if err := c.do(ctx, http.MethodPost, "/api/v1/scheduler/validate-cron", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleImmediateRequest mirrors the schedule-immediate endpoint body.
type ScheduleImmediateRequest struct {
	Name           string `json:"name,omitempty"`
	Portal         string `json:"portal"`
	TemplateID     string `json:"templateId,omitempty"`
	Keyword        string `json:"keyword,omitempty"`
	GenerateImage  bool   `json:"generateImage,omitempty"`
	ImageStyle     string `json:"imageStyle,omitempty"`
	GenerateSocial bool   `json:"generateSocial,omitempty"`
}

func (c *Client) ScheduleImmediate(ctx context.Context, req ScheduleImmediateRequest) (*models.BlogSchedule, error) {
	var schedule models.BlogSchedule
	if err := c.do(ctx, http.MethodPost, "/api/v1/scheduler/schedule-immediate", req, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) StatusOverview(ctx context.Context) (*service.StatusOverview, error) {
	var overview service.StatusOverview
	if err := c.do(ctx, http.MethodGet, "/api/v1/scheduler/status/overview", nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (c *Client) GeneratedBlogs(ctx context.Context, scheduleID string, limit int, status string, includeContent bool) ([]models.GeneratedBlog, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if status != "" {
		query.Set("status", status)
	}
	if includeContent {
		query.Set("includeContent", "true")
	}

	path := "/api/v1/scheduler/" + url.PathEscape(scheduleID) + "/generated-blogs"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var blogs []models.GeneratedBlog
	if err := c.do(ctx, http.MethodGet, path, nil, &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

func (c *Client) ExecutionHistory(ctx context.Context, scheduleID string, limit int) ([]models.ExecutionRecord, error) {
	path := "/api/v1/scheduler/" + url.PathEscape(scheduleID) + "/execution-history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var records []models.ExecutionRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CheckSchedules hits the poller entry point. The batch result is returned
// as-is; the endpoint never fails just because nothing is due.
func (c *Client) CheckSchedules(ctx context.Context) (*service.BatchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/blog-scheduler/check-schedules", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result service.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode batch result: %w", err)
	}
	return &result, nil
}

// ValidateFutureDateTime is a client-side convenience mirroring the server's
// future-instant check for form validation.
func ValidateFutureDateTime(date, clock string) cronexpr.ValidationResult {
	return cronexpr.ValidateFutureDateTime(date, clock)
}
