package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/models"
	"github.com/quillforge/quill/internal/service/social"
)

func newTestExecutor(t *testing.T, generator ContentGenerator) (*Executor, *ScheduleStore, *TemplateStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	logger := zaptest.NewLogger(t)
	store := NewScheduleStore(db, logger)
	templates := NewTemplateStore(db, logger)
	executor := NewExecutor(store, templates, generator, nil, db, logger)
	return executor, store, templates, db
}

func TestExecutorSuccess(t *testing.T) {
	generator := &stubGenerator{}
	executor, store, templates, db := newTestExecutor(t, generator)

	template, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	schedule := newSchedule("demo")
	schedule.TemplateID = template.ID
	created, err := store.Create(schedule)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.BlogID)
	assert.Equal(t, "Hello World", result.BlogTitle)
	assert.Equal(t, created.ID, result.ScheduleID)
	assert.Nil(t, result.SocialResults)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ExecutionCount)
	assert.Equal(t, models.StatusSuccess, got.LastStatus)
	assert.NotNil(t, got.LastExecuted)
	assert.Empty(t, got.LastError)

	var blog models.GeneratedBlog
	require.NoError(t, db.First(&blog, "id = ?", result.BlogID).Error)
	assert.Equal(t, created.ID, blog.ScheduleID)

	var record models.ExecutionRecord
	require.NoError(t, db.First(&record, "schedule_id = ?", created.ID).Error)
	assert.True(t, record.Success)
	assert.Equal(t, result.BlogID, record.BlogID)
}

func TestExecutorNotFound(t *testing.T) {
	executor, _, _, db := newTestExecutor(t, &stubGenerator{})

	_, err := executor.Execute(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// No side effects on an unknown id.
	var count int64
	require.NoError(t, db.Model(&models.ExecutionRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExecutorNoTemplate(t *testing.T) {
	executor, store, _, _ := newTestExecutor(t, &stubGenerator{})

	schedule := newSchedule("demo")
	schedule.TemplateID = "missing"
	created, err := store.Create(schedule)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNoTemplate)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.LastStatus)
	assert.NotEmpty(t, got.LastError)
	assert.Zero(t, got.ExecutionCount)
}

func TestExecutorPlaceholderTemplateSkipped(t *testing.T) {
	executor, store, templates, _ := newTestExecutor(t, &stubGenerator{})

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: models.PlaceholderTemplateTitle})
	require.NoError(t, err)
	usable, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Summer Campaign"})
	require.NoError(t, err)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, usable.Title, result.BlogTitle)
}

func TestExecutorGenerationFailed(t *testing.T) {
	executor, store, templates, _ := newTestExecutor(t, &stubGenerator{failBlog: true})

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.LastStatus)
}

func TestExecutorOneShotDeactivation(t *testing.T) {
	executor, store, templates, _ := newTestExecutor(t, &stubGenerator{})

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	schedule := newSchedule("demo")
	schedule.CronExpression = "0 9 15 6 *"
	schedule.Frequency = "once"
	created, err := store.Create(schedule)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.NextRunTime)
}

func TestExecutorOneShotFromRawCron(t *testing.T) {
	// No frequency recorded: one-shot-ness falls back to the pinned
	// expression check.
	executor, store, templates, _ := newTestExecutor(t, &stubGenerator{})

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	schedule := newSchedule("demo")
	schedule.CronExpression = "0 9 15 6 *"
	schedule.Frequency = ""
	created, err := store.Create(schedule)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestExecutorSocialFailureDoesNotFailExecution(t *testing.T) {
	db := newTestDB(t)
	logger := zaptest.NewLogger(t)
	store := NewScheduleStore(db, logger)
	templates := NewTemplateStore(db, logger)
	generator := &stubGenerator{}

	// No publishers registered: every social post fails, the execution
	// still reports blog-post success.
	socialMgr := social.NewManager(generator, map[string]string{"demo": "acct-demo"}, logger, db)
	executor := NewExecutor(store, templates, generator, socialMgr, db, logger)

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	schedule := newSchedule("demo")
	schedule.GenerateSocial = true
	created, err := store.Create(schedule)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, result.SocialResults, len(models.SocialNetworks))
	for _, sr := range result.SocialResults {
		assert.False(t, sr.Success)
	}

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, got.LastStatus)
}

func TestExecutorRecurringStaysActive(t *testing.T) {
	executor, store, templates, _ := newTestExecutor(t, &stubGenerator{})

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	schedule := newSchedule("demo")
	schedule.CronExpression = "0 9 * * *"
	created, err := store.Create(schedule)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.NextRunTime)
	assert.True(t, got.NextRunTime.After(time.Now().UTC()))
}

func TestExecutorDeactivatesAfterExpressionSwitch(t *testing.T) {
	generator := &stubGenerator{}
	executor, store, templates, _ := newTestExecutor(t, generator)

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	// Created daily, then switched to a pinned one-time expression the way
	// the update endpoint rewrites both representations together.
	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)
	require.NoError(t, store.Update(created.ID, map[string]interface{}{
		"cron_expression": "30 9 15 6 *",
		"frequency":       "once",
	}))

	_, err = executor.Execute(context.Background(), created.ID)
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.NextRunTime)
}
