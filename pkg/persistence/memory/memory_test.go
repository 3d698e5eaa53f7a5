package memory

import (
	"context"
	"testing"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignRoundTrip(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	campaign := &models.Campaign{
		ID:       "cmp-1",
		TenantID: "t1",
		Name:     "Welcome Sequence",
		Status:   models.CampaignStatusActive,
		Steps: []*models.CampaignStep{
			{ID: "s1", CampaignID: "cmp-1", StepOrder: 1, Kind: models.StepKindSendEmail},
		},
	}

	require.NoError(t, store.SaveCampaign(ctx, campaign))

	loaded, err := store.CampaignByID(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome Sequence", loaded.Name)
	require.Len(t, loaded.Steps, 1)

	// Reads return clones; mutating them must not leak back.
	loaded.Name = "Mutated"
	again, err := store.CampaignByID(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome Sequence", again.Name)

	_, err = store.CampaignByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrCampaignNotFound)
}

func TestDeleteCampaignIsSoft(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	campaign := &models.Campaign{ID: "cmp-1", TenantID: "t1", Name: "X", Status: models.CampaignStatusActive}
	require.NoError(t, store.SaveCampaign(ctx, campaign))
	require.NoError(t, store.DeleteCampaign(ctx, "cmp-1"))

	loaded, err := store.CampaignByID(ctx, "cmp-1")
	require.NoError(t, err)
	assert.NotNil(t, loaded.DeletedAt)
	assert.False(t, loaded.IsActive())
}

func TestActiveStageTriggersFiltersAndSorts(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	activeCampaign := &models.Campaign{
		ID: "cmp-active", TenantID: "t1", Name: "A", Status: models.CampaignStatusActive,
		Triggers: []*models.CampaignTrigger{
			{ID: "tr-low", CampaignID: "cmp-active", TenantID: "t1", Kind: models.TriggerKindStageChange, Priority: 1, Active: true},
			{ID: "tr-high", CampaignID: "cmp-active", TenantID: "t1", Kind: models.TriggerKindStageChange, Priority: 9, Active: true},
			{ID: "tr-off", CampaignID: "cmp-active", TenantID: "t1", Kind: models.TriggerKindStageChange, Priority: 5, Active: false},
			{ID: "tr-manual", CampaignID: "cmp-active", TenantID: "t1", Kind: models.TriggerKindManual, Priority: 5, Active: true},
		},
	}
	pausedCampaign := &models.Campaign{
		ID: "cmp-paused", TenantID: "t1", Name: "B", Status: models.CampaignStatusPaused,
		Triggers: []*models.CampaignTrigger{
			{ID: "tr-paused", CampaignID: "cmp-paused", TenantID: "t1", Kind: models.TriggerKindStageChange, Active: true},
		},
	}

	require.NoError(t, store.SaveCampaign(ctx, activeCampaign))
	require.NoError(t, store.SaveCampaign(ctx, pausedCampaign))

	triggers, err := store.ActiveStageTriggers(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, triggers, 2)
	assert.Equal(t, "tr-high", triggers[0].ID)
	assert.Equal(t, "tr-low", triggers[1].ID)
}

func TestEnrollmentUniqueness(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	first := &models.CampaignEnrollment{
		ID: "e1", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c1",
		Status: models.EnrollmentStatusActive, EnrolledAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateEnrollment(ctx, first))

	duplicate := &models.CampaignEnrollment{
		ID: "e2", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c1",
		Status: models.EnrollmentStatusActive, EnrolledAt: time.Now().UTC(),
	}
	err := store.CreateEnrollment(ctx, duplicate)
	assert.True(t, persistence.IsEnrollmentExists(err))

	// A different contact in the same campaign is fine.
	other := &models.CampaignEnrollment{
		ID: "e3", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c2",
		Status: models.EnrollmentStatusActive, EnrolledAt: time.Now().UTC(),
	}
	assert.NoError(t, store.CreateEnrollment(ctx, other))

	// Once the first enrollment ends, the slot frees up.
	first.Exit(models.ExitReasonStageChanged, time.Now().UTC())
	require.NoError(t, store.SaveEnrollment(ctx, first))
	assert.NoError(t, store.CreateEnrollment(ctx, duplicate))
}

func TestLatestEndedEnrollment(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)

	older := &models.CampaignEnrollment{
		ID: "e1", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c1",
		Status: models.EnrollmentStatusExited, EnrolledAt: old.Add(-time.Hour), ExitedAt: &old,
	}
	newer := &models.CampaignEnrollment{
		ID: "e2", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c1",
		Status: models.EnrollmentStatusCompleted, EnrolledAt: recent.Add(-time.Hour), CompletedAt: &recent,
	}

	require.NoError(t, store.SaveEnrollment(ctx, older))
	require.NoError(t, store.SaveEnrollment(ctx, newer))

	latest, err := store.LatestEndedEnrollment(ctx, "cmp-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "e2", latest.ID)

	_, err = store.LatestEndedEnrollment(ctx, "cmp-1", "nobody")
	assert.ErrorIs(t, err, persistence.ErrEnrollmentNotFound)
}

func TestDuePendingExecutions(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()
	now := time.Now().UTC()

	active := &models.CampaignEnrollment{
		ID: "e-active", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c1",
		Status: models.EnrollmentStatusActive, EnrolledAt: now,
	}
	paused := &models.CampaignEnrollment{
		ID: "e-paused", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c2",
		Status: models.EnrollmentStatusPaused, EnrolledAt: now,
	}
	require.NoError(t, store.SaveEnrollment(ctx, active))
	require.NoError(t, store.SaveEnrollment(ctx, paused))

	executions := []*models.CampaignStepExecution{
		{ID: "x-late", EnrollmentID: "e-active", Status: models.ExecutionStatusPending, ScheduledAt: now.Add(-time.Minute)},
		{ID: "x-early", EnrollmentID: "e-active", Status: models.ExecutionStatusPending, ScheduledAt: now.Add(-time.Hour)},
		{ID: "x-future", EnrollmentID: "e-active", Status: models.ExecutionStatusPending, ScheduledAt: now.Add(time.Hour)},
		{ID: "x-paused", EnrollmentID: "e-paused", Status: models.ExecutionStatusPending, ScheduledAt: now.Add(-time.Hour)},
		{ID: "x-done", EnrollmentID: "e-active", Status: models.ExecutionStatusCompleted, ScheduledAt: now.Add(-time.Hour)},
	}
	for _, x := range executions {
		require.NoError(t, store.SaveExecution(ctx, x))
	}

	due, err := store.DuePendingExecutions(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "x-early", due[0].ID)
	assert.Equal(t, "x-late", due[1].ID)

	limited, err := store.DuePendingExecutions(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "x-early", limited[0].ID)
}

func TestClaimExecution(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()
	now := time.Now().UTC()

	execution := &models.CampaignStepExecution{
		ID: "x1", EnrollmentID: "e1", Status: models.ExecutionStatusPending, ScheduledAt: now,
	}
	require.NoError(t, store.SaveExecution(ctx, execution))

	claimed, err := store.ClaimExecution(ctx, "x1", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// The second claim loses.
	claimed, err = store.ClaimExecution(ctx, "x1", now)
	require.NoError(t, err)
	assert.False(t, claimed)

	loaded, err := store.ExecutionByID(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
	require.NotNil(t, loaded.StartedAt)
}

func TestCancelPendingExecutions(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()
	now := time.Now().UTC()

	pending := &models.CampaignStepExecution{ID: "x1", EnrollmentID: "e1", Status: models.ExecutionStatusPending, ScheduledAt: now}
	running := &models.CampaignStepExecution{ID: "x2", EnrollmentID: "e1", Status: models.ExecutionStatusRunning, ScheduledAt: now}
	require.NoError(t, store.SaveExecution(ctx, pending))
	require.NoError(t, store.SaveExecution(ctx, running))

	require.NoError(t, store.CancelPendingExecutions(ctx, "e1"))

	loaded, err := store.ExecutionByID(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSkipped, loaded.Status)

	loaded, err = store.ExecutionByID(ctx, "x2")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
}

func TestIncrementCounters(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	campaign := &models.Campaign{
		ID: "cmp-1", TenantID: "t1", Name: "X", Status: models.CampaignStatusActive,
		Steps: []*models.CampaignStep{
			{ID: "s1", CampaignID: "cmp-1", StepOrder: 1, Kind: models.StepKindWait},
		},
	}
	require.NoError(t, store.SaveCampaign(ctx, campaign))

	require.NoError(t, store.IncrementCampaignCounters(ctx, "cmp-1", persistence.CounterDelta{Enrolled: 1}))
	require.NoError(t, store.IncrementCampaignCounters(ctx, "cmp-1", persistence.CounterDelta{Enrolled: 1, Completed: 1, Revenue: 99.5}))

	loaded, err := store.CampaignByID(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.EnrolledCount)
	assert.Equal(t, int64(1), loaded.CompletedCount)
	assert.InDelta(t, 99.5, loaded.Revenue, 0.001)

	require.NoError(t, store.IncrementStepCounters(ctx, "s1", persistence.StepCounterDelta{Executed: 1, Succeeded: 1}))

	loaded, err = store.CampaignByID(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Steps[0].ExecutedCount)
	assert.Equal(t, int64(1), loaded.Steps[0].SucceededCount)
}

func TestCampaignPerformanceByTenant(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	require.NoError(t, store.SaveCampaign(ctx, &models.Campaign{
		ID: "cmp-1", TenantID: "t1", Name: "Alpha", Status: models.CampaignStatusActive,
		EnrolledCount: 3, CompletedCount: 1, Revenue: 250,
	}))
	require.NoError(t, store.SaveCampaign(ctx, &models.Campaign{
		ID: "cmp-2", TenantID: "t2", Name: "Other tenant", Status: models.CampaignStatusActive,
	}))

	require.NoError(t, store.SaveEnrollment(ctx, &models.CampaignEnrollment{
		ID: "e1", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c1",
		Status: models.EnrollmentStatusActive,
	}))
	require.NoError(t, store.SaveEnrollment(ctx, &models.CampaignEnrollment{
		ID: "e2", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c2",
		Status: models.EnrollmentStatusExited,
	}))
	require.NoError(t, store.SaveEnrollment(ctx, &models.CampaignEnrollment{
		ID: "e3", TenantID: "t1", CampaignID: "cmp-1", ContactID: "c3",
		Status: models.EnrollmentStatusCompleted,
	}))

	rows, err := store.CampaignPerformanceByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "cmp-1", rows[0].CampaignID)
	assert.Equal(t, int64(3), rows[0].EnrolledCount)
	assert.Equal(t, int64(1), rows[0].CompletedCount)
	assert.Equal(t, int64(1), rows[0].ActiveCount)
	assert.Equal(t, int64(1), rows[0].ExitedCount)
	assert.InDelta(t, 250, rows[0].Revenue, 0.001)
}

func TestEnrollmentCountsByStatus(t *testing.T) {
	store := NewPersistence()
	ctx := context.Background()

	statuses := []models.EnrollmentStatus{
		models.EnrollmentStatusActive,
		models.EnrollmentStatusActive,
		models.EnrollmentStatusCompleted,
		models.EnrollmentStatusExited,
	}

	for i, status := range statuses {
		require.NoError(t, store.SaveEnrollment(ctx, &models.CampaignEnrollment{
			ID: "e" + string(rune('a'+i)), TenantID: "t1", CampaignID: "cmp-1",
			ContactID: "c" + string(rune('a'+i)), Status: status,
		}))
	}

	require.NoError(t, store.SaveEnrollment(ctx, &models.CampaignEnrollment{
		ID: "ez", TenantID: "t2", CampaignID: "cmp-9", ContactID: "cz",
		Status: models.EnrollmentStatusActive,
	}))

	counts, err := store.EnrollmentCountsByStatus(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.EnrollmentStatusActive])
	assert.Equal(t, int64(1), counts[models.EnrollmentStatusCompleted])
	assert.Equal(t, int64(1), counts[models.EnrollmentStatusExited])
}
