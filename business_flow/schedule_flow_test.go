package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeNextRun(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    int
		unit     models.IntervalUnit
		expected time.Time
	}{
		{"30 minutes", 30, models.IntervalUnitMinutes, now.Add(30 * time.Minute)},
		{"6 hours", 6, models.IntervalUnitHours, now.Add(6 * time.Hour)},
		{"1 day", 1, models.IntervalUnitDays, now.Add(24 * time.Hour)},
		{"2 weeks", 2, models.IntervalUnitWeeks, now.Add(14 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeNextRun(tt.value, tt.unit, now))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name     string
		schedule models.Schedule
		expected bool
	}{
		{"due", models.Schedule{Active: utils.ToPtr(true), NextRunAt: &past}, true},
		{"not yet due", models.Schedule{Active: utils.ToPtr(true), NextRunAt: &future}, false},
		{"disabled never fires", models.Schedule{Active: utils.ToPtr(false), NextRunAt: &past}, false},
		{"nil next run never fires", models.Schedule{Active: utils.ToPtr(true)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsOverdue(&tt.schedule, now))
		})
	}
}

func TestScheduleCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds next run from creation time", func(t *testing.T) {
		schedules := newFakeScheduleRepo()
		flow := NewScheduleFlow(schedules, newFakePromptRepo(), nil)

		before := utils.UTCNow()
		created, err := flow.Create(ctx, &dto.CreateScheduleRequest{
			ClientID:      1,
			Name:          "weekly sweep",
			IntervalValue: 30,
			IntervalUnit:  "minutes",
		})
		require.NoError(t, err)
		assert.True(t, created.Active)

		stored := schedules.schedules[0]
		require.NotNil(t, stored.NextRunAt)
		expected := before.Add(30 * time.Minute)
		assert.WithinDuration(t, expected, *stored.NextRunAt, 2*time.Second)
	})

	t.Run("validates interval", func(t *testing.T) {
		flow := NewScheduleFlow(newFakeScheduleRepo(), newFakePromptRepo(), nil)

		_, err := flow.Create(ctx, &dto.CreateScheduleRequest{ClientID: 1, Name: "x", IntervalValue: 0, IntervalUnit: "minutes"})
		assert.ErrorIs(t, err, ErrScheduleIntervalInvalid)

		_, err = flow.Create(ctx, &dto.CreateScheduleRequest{ClientID: 1, Name: "x", IntervalValue: 5, IntervalUnit: "fortnights"})
		assert.ErrorIs(t, err, ErrScheduleIntervalInvalid)
	})

	t.Run("validates prompt ownership", func(t *testing.T) {
		prompts := newFakePromptRepo()
		prompt := seedPrompt(prompts, 2, "someone else's prompt")
		flow := NewScheduleFlow(newFakeScheduleRepo(), prompts, nil)

		_, err := flow.Create(ctx, &dto.CreateScheduleRequest{
			ClientID:      1,
			PromptID:      &prompt.ID,
			Name:          "x",
			IntervalValue: 1,
			IntervalUnit:  "hours",
		})
		assert.ErrorIs(t, err, ErrPromptNotFound)
	})
}

func TestScheduleToggle(t *testing.T) {
	ctx := context.Background()

	newSchedule := func(repo *fakeScheduleRepo) *models.Schedule {
		next := utils.UTCNowAdd(10 * time.Minute)
		s := &models.Schedule{
			UUID:          uuid.New(),
			ClientID:      1,
			Name:          "sweep",
			IntervalValue: 40,
			IntervalUnit:  models.IntervalUnitMinutes,
			Active:        utils.ToPtr(true),
			NextRunAt:     &next,
		}
		_ = repo.Save(ctx, s)
		return s
	}

	t.Run("disable clears next run", func(t *testing.T) {
		repo := newFakeScheduleRepo()
		schedule := newSchedule(repo)
		flow := NewScheduleFlow(repo, newFakePromptRepo(), nil)

		toggled, err := flow.Toggle(ctx, 1, &dto.ToggleScheduleRequest{ScheduleID: schedule.ID, Active: false})
		require.NoError(t, err)
		assert.False(t, toggled.Active)
		assert.Empty(t, toggled.NextRunAt)
		assert.Nil(t, repo.schedules[0].NextRunAt)
	})

	t.Run("re-enable recomputes from now, not the stale target", func(t *testing.T) {
		repo := newFakeScheduleRepo()
		schedule := newSchedule(repo)
		flow := NewScheduleFlow(repo, newFakePromptRepo(), nil)

		_, err := flow.Toggle(ctx, 1, &dto.ToggleScheduleRequest{ScheduleID: schedule.ID, Active: false})
		require.NoError(t, err)

		before := utils.UTCNow()
		_, err = flow.Toggle(ctx, 1, &dto.ToggleScheduleRequest{ScheduleID: schedule.ID, Active: true})
		require.NoError(t, err)

		stored := repo.schedules[0]
		require.NotNil(t, stored.NextRunAt)
		assert.WithinDuration(t, before.Add(40*time.Minute), *stored.NextRunAt, 2*time.Second)
	})

	t.Run("rejects schedules of other clients", func(t *testing.T) {
		repo := newFakeScheduleRepo()
		schedule := newSchedule(repo)
		flow := NewScheduleFlow(repo, newFakePromptRepo(), nil)

		_, err := flow.Toggle(ctx, 2, &dto.ToggleScheduleRequest{ScheduleID: schedule.ID, Active: false})
		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})
}

func TestMarkRun(t *testing.T) {
	ctx := context.Background()

	repo := newFakeScheduleRepo()
	flow := NewScheduleFlow(repo, newFakePromptRepo(), nil)

	next := utils.UTCNow()
	schedule := &models.Schedule{
		UUID:          uuid.New(),
		ClientID:      1,
		Name:          "sweep",
		IntervalValue: 1,
		IntervalUnit:  models.IntervalUnitHours,
		Active:        utils.ToPtr(true),
		NextRunAt:     &next,
	}
	require.NoError(t, repo.Save(ctx, schedule))

	ranAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, flow.MarkRun(ctx, schedule, ranAt))

	stored := repo.schedules[0]
	assert.Equal(t, 1, stored.RunCount)
	require.NotNil(t, stored.LastRunAt)
	assert.Equal(t, ranAt, *stored.LastRunAt)
	require.NotNil(t, stored.NextRunAt)
	assert.Equal(t, ranAt.Add(time.Hour), *stored.NextRunAt)
}
