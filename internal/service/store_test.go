package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillforge/quill/internal/models"
)

func newSchedule(portal string) *models.BlogSchedule {
	next := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	return &models.BlogSchedule{
		Name:           "Morning post",
		CronExpression: "0 9 * * *",
		Frequency:      "daily",
		Portal:         portal,
		IsActive:       true,
		NextRunTime:    &next,
	}
}

func TestScheduleStoreCreate(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "UTC", created.Timezone)
	assert.Equal(t, models.StatusNeverExecuted, created.LastStatus)

	t.Run("MissingName", func(t *testing.T) {
		schedule := newSchedule("demo")
		schedule.Name = ""
		_, err := store.Create(schedule)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("MissingExpression", func(t *testing.T) {
		schedule := newSchedule("demo")
		schedule.CronExpression = ""
		_, err := store.Create(schedule)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("MissingPortal", func(t *testing.T) {
		_, err := store.Create(newSchedule(""))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestScheduleStoreList(t *testing.T) {
	store, _ := newTestStore(t)

	first, err := store.Create(newSchedule("alpha"))
	require.NoError(t, err)
	_, err = store.Create(newSchedule("beta"))
	require.NoError(t, err)

	all, err := store.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	alpha, err := store.List("alpha")
	require.NoError(t, err)
	require.Len(t, alpha, 1)
	assert.Equal(t, first.ID, alpha[0].ID)

	t.Run("EmptyResultIsNotAnError", func(t *testing.T) {
		none, err := store.List("gamma")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Idempotent", func(t *testing.T) {
		again, err := store.List("")
		require.NoError(t, err)
		require.Len(t, again, len(all))
		for i := range all {
			assert.Equal(t, all[i].ID, again[i].ID)
			assert.Equal(t, all[i].CronExpression, again[i].CronExpression)
		}
	})
}

func TestScheduleStoreGet(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleStoreUpdate(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	require.NoError(t, store.Update(created.ID, map[string]interface{}{"name": "Evening post"}))

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evening post", got.Name)
	assert.True(t, got.UpdatedAt.After(created.CreatedAt) || got.UpdatedAt.Equal(created.CreatedAt))

	err = store.Update("missing", map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(created.ID))
	_, err = store.Get(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent id is treated as success.
	assert.NoError(t, store.Delete("missing"))
}

func TestScheduleStoreSetActive(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	require.NoError(t, store.SetActive(created.ID, false))
	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, store.SetActive(created.ID, true))
	got, err = store.Get(created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestScheduleStoreDue(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	due := newSchedule("demo")
	past := now.Add(-time.Hour)
	due.NextRunTime = &past
	dueCreated, err := store.Create(due)
	require.NoError(t, err)

	future := newSchedule("demo")
	later := now.Add(time.Hour)
	future.NextRunTime = &later
	_, err = store.Create(future)
	require.NoError(t, err)

	inactive := newSchedule("demo")
	inactive.NextRunTime = &past
	inactive.IsActive = false
	_, err = store.Create(inactive)
	require.NoError(t, err)

	unscheduled := newSchedule("demo")
	unscheduled.NextRunTime = nil
	_, err = store.Create(unscheduled)
	require.NoError(t, err)

	found, err := store.Due(now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, dueCreated.ID, found[0].ID)
}

func TestScheduleStoreClaim(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	created, err := store.Create(newSchedule("demo"))
	require.NoError(t, err)

	require.NoError(t, store.Claim(created.ID, now, 5*time.Minute))

	// A second claim inside the lease window must fail.
	err = store.Claim(created.ID, now.Add(time.Minute), 5*time.Minute)
	assert.True(t, errors.Is(err, ErrAlreadyClaimed))

	// After the lease expires the schedule can be claimed again.
	require.NoError(t, store.Claim(created.ID, now.Add(10*time.Minute), 5*time.Minute))

	// Release drops the lease immediately.
	store.Release(created.ID)
	require.NoError(t, store.Claim(created.ID, now.Add(11*time.Minute), 5*time.Minute))
}

func TestScheduleStoreRejectsUnknownImageStyle(t *testing.T) {
	store, _ := newTestStore(t)

	schedule := newSchedule("demo")
	schedule.GenerateImage = true
	schedule.ImageStyle = "vaporwave"
	_, err := store.Create(schedule)
	assert.ErrorIs(t, err, ErrValidation)

	schedule.ImageStyle = "watercolor"
	_, err = store.Create(schedule)
	assert.NoError(t, err)
}
