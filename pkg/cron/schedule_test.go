package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/report-slides-app/pkg/model"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

// 2025-10-15 22:35:57 UTC, a Wednesday.
var reference = time.Date(2025, 10, 15, 22, 35, 57, 0, time.UTC)

func TestNextRun_Timezones(t *testing.T) {
	tests := []struct {
		name     string
		cronExpr string
		timezone string
		check    func(t *testing.T, local time.Time)
	}{
		{
			name:     "daily midnight in New York",
			cronExpr: "0 0 * * *",
			timezone: "America/New_York",
			check: func(t *testing.T, local time.Time) {
				assert.Equal(t, 16, local.Day())
			},
		},
		{
			name:     "daily midnight in Tokyo",
			cronExpr: "0 0 * * *",
			timezone: "Asia/Tokyo",
			check: func(t *testing.T, local time.Time) {
				// already the 16th in Tokyo
				assert.Equal(t, 17, local.Day())
			},
		},
		{
			name:     "weekly Monday in Los Angeles",
			cronExpr: "0 0 * * 1",
			timezone: "America/Los_Angeles",
			check: func(t *testing.T, local time.Time) {
				assert.Equal(t, time.Monday, local.Weekday())
			},
		},
		{
			name:     "monthly first in UTC",
			cronExpr: "0 0 1 * *",
			timezone: "UTC",
			check: func(t *testing.T, local time.Time) {
				assert.Equal(t, 1, local.Day())
				assert.Equal(t, time.November, local.Month())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextRun(&model.Schedule{CronExpr: tt.cronExpr, Timezone: tt.timezone}, reference)
			require.NoError(t, err)

			assert.True(t, next.After(reference))
			assert.Equal(t, time.UTC, next.Location())

			local := next.In(mustLocation(t, tt.timezone))
			assert.Equal(t, 0, local.Hour())
			assert.Equal(t, 0, local.Minute())
			tt.check(t, local)
		})
	}
}

func TestNextRun_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	next, err := NextRun(&model.Schedule{CronExpr: "0 0 * * *", Timezone: "Invalid/Zone"}, reference)
	require.Error(t, err)
	assert.Equal(t, time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC), next)
}

func TestNextRun_InvalidExpressionFallsBackToOneHour(t *testing.T) {
	next, err := NextRun(&model.Schedule{CronExpr: "not a cron", Timezone: "UTC"}, reference)
	require.Error(t, err)
	assert.Equal(t, reference.Add(time.Hour), next)
}

// A schedule without an expression must land on midnight, not now + 24h.
func TestNextRun_DerivedFromIntervalType(t *testing.T) {
	tests := []struct {
		interval string
		expr     string
		want     time.Time
	}{
		{"daily", "0 0 * * *", time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)},
		{"weekly", "0 0 * * 1", time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)},
		{"monthly", "0 0 1 * *", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"unknown", "0 0 * * *", time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			schedule := &model.Schedule{IntervalType: tt.interval, Timezone: "UTC"}
			assert.Equal(t, tt.expr, CronExpression(schedule))

			next, err := NextRun(schedule, reference)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestCalculateNextRun_UsesSchedulerClock(t *testing.T) {
	s := &Scheduler{now: func() time.Time { return reference }}
	next := s.CalculateNextRun(&model.Schedule{IntervalType: "daily", Timezone: "UTC"})
	assert.Equal(t, time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC), next)
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "Q1-Review-2024-01-02-030405.pdf", Filename("Q1 Review", at))
	assert.Equal(t, "deck-2024-01-02-030405.pdf", Filename(" / ", at))
}
