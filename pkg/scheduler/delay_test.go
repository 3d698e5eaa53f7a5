package scheduler

import (
	"testing"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNextRunAtPlainDelay(t *testing.T) {
	completedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) // Monday

	step := &models.CampaignStep{DelayValue: 2, DelayUnit: models.DelayUnitDays}
	campaign := &models.Campaign{}

	runAt := NextRunAt(completedAt, step, campaign)
	assert.Equal(t, completedAt.Add(48*time.Hour), runAt)
}

func TestNextRunAtNoDelay(t *testing.T) {
	completedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	step := &models.CampaignStep{}

	assert.Equal(t, completedAt, NextRunAt(completedAt, step, &models.Campaign{}))
}

func TestNextRunAtBusinessHours(t *testing.T) {
	campaign := &models.Campaign{RespectBusinessHours: true}

	t.Run("inside window unchanged", func(t *testing.T) {
		completedAt := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC) // Monday 10:00
		step := &models.CampaignStep{DelayValue: 2, DelayUnit: models.DelayUnitHours}

		runAt := NextRunAt(completedAt, step, campaign)
		assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), runAt)
	})

	t.Run("evening pushes to next morning", func(t *testing.T) {
		completedAt := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC) // Monday 18:00
		step := &models.CampaignStep{}

		runAt := NextRunAt(completedAt, step, campaign)
		assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), runAt)
	})

	t.Run("early morning pushes to nine", func(t *testing.T) {
		completedAt := time.Date(2025, 3, 11, 5, 30, 0, 0, time.UTC) // Tuesday 05:30
		step := &models.CampaignStep{}

		runAt := NextRunAt(completedAt, step, campaign)
		assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), runAt)
	})

	t.Run("weekend pushes to monday", func(t *testing.T) {
		completedAt := time.Date(2025, 3, 15, 11, 0, 0, 0, time.UTC) // Saturday
		step := &models.CampaignStep{}

		runAt := NextRunAt(completedAt, step, campaign)
		assert.Equal(t, time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC), runAt)
	})
}

func TestNextRunAtTimezone(t *testing.T) {
	campaign := &models.Campaign{RespectBusinessHours: true, Timezone: "America/New_York"}
	step := &models.CampaignStep{}

	// 12:00 UTC on a Monday is 08:00 in New York (EDT), before the window.
	completedAt := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	runAt := NextRunAt(completedAt, step, campaign)

	loc, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)
	assert.Equal(t, 9, runAt.In(loc).Hour())
	assert.Equal(t, time.Monday, runAt.In(loc).Weekday())
}
