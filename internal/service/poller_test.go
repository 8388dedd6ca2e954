package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quillforge/quill/internal/config"
	"github.com/quillforge/quill/internal/models"
)

func newTestPoller(t *testing.T) (*Poller, *ScheduleStore, *TemplateStore) {
	t.Helper()
	db := newTestDB(t)
	logger := zaptest.NewLogger(t)
	store := NewScheduleStore(db, logger)
	templates := NewTemplateStore(db, logger)
	executor := NewExecutor(store, templates, &stubGenerator{}, nil, db, logger)
	cfg := &config.SchedulerConfig{PollInterval: "1m", ClaimTTL: "5m"}
	return NewPoller(cfg, store, executor, logger), store, templates
}

func dueSchedule(portal string) *models.BlogSchedule {
	schedule := newSchedule(portal)
	past := time.Now().UTC().Add(-time.Hour)
	schedule.NextRunTime = &past
	return schedule
}

func TestPollerNothingDue(t *testing.T) {
	poller, store, _ := newTestPoller(t)

	// One schedule, not yet due.
	schedule := newSchedule("demo")
	future := time.Now().UTC().Add(time.Hour)
	schedule.NextRunTime = &future
	_, err := store.Create(schedule)
	require.NoError(t, err)

	result := poller.CheckSchedules(context.Background())
	assert.True(t, result.Success)
	assert.Zero(t, result.SchedulesToExecute)
	assert.Empty(t, result.Results)

	// No bookkeeping side effects.
	got, err := store.List("")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusNeverExecuted, got[0].LastStatus)
}

func TestPollerFailureIsolation(t *testing.T) {
	poller, store, templates := newTestPoller(t)

	// Portal "ok" has a usable template; portal "broken" has none, so its
	// execution fails at template resolution.
	_, err := templates.Create(&models.BlogTemplate{Portal: "ok", Title: "Hello World"})
	require.NoError(t, err)

	good, err := store.Create(dueSchedule("ok"))
	require.NoError(t, err)
	bad, err := store.Create(dueSchedule("broken"))
	require.NoError(t, err)

	result := poller.CheckSchedules(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SchedulesToExecute)
	assert.ElementsMatch(t, []string{good.ID, bad.ID}, result.ScheduleIDs)

	outcomes := make(map[string]ScheduleOutcome, len(result.Results))
	for _, outcome := range result.Results {
		outcomes[outcome.ScheduleID] = outcome
	}

	assert.True(t, outcomes[good.ID].Success)
	assert.NotEmpty(t, outcomes[good.ID].BlogID)
	assert.False(t, outcomes[bad.ID].Success)
	assert.NotEmpty(t, outcomes[bad.ID].Error)

	// The successful schedule's bookkeeping reflects success regardless of
	// the other's failure.
	gotGood, err := store.Get(good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, gotGood.LastStatus)
	assert.Equal(t, 1, gotGood.ExecutionCount)

	gotBad, err := store.Get(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, gotBad.LastStatus)
}

func TestPollerSkipsClaimedSchedule(t *testing.T) {
	poller, store, templates := newTestPoller(t)

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	created, err := store.Create(dueSchedule("demo"))
	require.NoError(t, err)

	// Another poller holds the lease.
	require.NoError(t, store.Claim(created.ID, time.Now().UTC(), 5*time.Minute))

	result := poller.CheckSchedules(context.Background())
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Skipped)
	assert.False(t, result.Results[0].Success)

	// The schedule was not executed.
	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ExecutionCount)
}

func TestPollerRecurringAdvancesNextRun(t *testing.T) {
	poller, store, templates := newTestPoller(t)

	_, err := templates.Create(&models.BlogTemplate{Portal: "demo", Title: "Hello World"})
	require.NoError(t, err)

	created, err := store.Create(dueSchedule("demo"))
	require.NoError(t, err)

	first := poller.CheckSchedules(context.Background())
	require.Equal(t, 1, first.SchedulesToExecute)

	// The schedule is no longer due: its next run moved past now.
	second := poller.CheckSchedules(context.Background())
	assert.Zero(t, second.SchedulesToExecute)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunTime)
	assert.True(t, got.NextRunTime.After(time.Now().UTC()))
}

func TestPollerStopIsIdempotent(t *testing.T) {
	poller, _, _ := newTestPoller(t)

	require.NoError(t, poller.Start(context.Background()))
	poller.Stop()
	assert.NotPanics(t, func() { poller.Stop() })
}
