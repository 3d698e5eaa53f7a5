package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/evercrm/cadence/pkg/events"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageCampaign(id, toStage, fromStage, pipeline string) *models.Campaign {
	config := map[string]any{"to_stage": toStage}
	if fromStage != "" {
		config["from_stage"] = fromStage
	}

	if pipeline != "" {
		config["pipeline"] = pipeline
	}

	return &models.Campaign{
		ID:       id,
		TenantID: "t1",
		Name:     "Stage campaign " + id,
		Status:   models.CampaignStatusActive,
		Steps: []*models.CampaignStep{
			{ID: id + "-s1", CampaignID: id, StepOrder: 1, Kind: models.StepKindWait,
				DelayValue: 1, DelayUnit: models.DelayUnitDays},
		},
		Triggers: []*models.CampaignTrigger{
			{ID: id + "-trg", CampaignID: id, TenantID: "t1",
				Kind: models.TriggerKindStageChange, Config: config, Active: true},
		},
	}
}

func stageMatcherFixture(t *testing.T) (*memory.Persistence, *TriggerMatcher, *capturingBus) {
	t.Helper()

	store := memory.NewPersistence()
	bus := &capturingBus{}
	enroller := NewEnroller(store, bus, nil, testLogger())
	matcher := NewTriggerMatcher(store, enroller, bus, testLogger())

	seedContact(t, store, &models.Contact{ID: "c1", TenantID: "t1", Email: "c1@example.com"})
	require.NoError(t, store.SaveDeal(context.Background(), &models.Deal{
		ID: "d1", TenantID: "t1", ContactID: "c1", Pipeline: "sales", Stage: "lead",
	}))

	return store, matcher, bus
}

func stageEvent(from, to string) *models.StageChangeEvent {
	return &models.StageChangeEvent{
		TenantID:  "t1",
		DealID:    "d1",
		ContactID: "c1",
		Pipeline:  "sales",
		FromStage: from,
		ToStage:   to,
		ChangedBy: "user-1",
		ChangedAt: time.Now().UTC(),
	}
}

func TestStageChangeEnrollsMatchingCampaign(t *testing.T) {
	store, matcher, bus := stageMatcherFixture(t)
	seedCampaign(t, store, stageCampaign("cmp-qualified", "qualified", "", ""))

	require.NoError(t, matcher.HandleStageChange(context.Background(), stageEvent("lead", "qualified")))

	enrollment, err := store.ActiveEnrollment(context.Background(), "cmp-qualified", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentSourceAutomatic, enrollment.Source)

	var created *events.EnrollmentCreated

	for _, event := range bus.published {
		if typed, ok := event.(events.EnrollmentCreated); ok {
			created = &typed
		}
	}

	require.NotNil(t, created)
	assert.Equal(t, "cmp-qualified-trg", created.TriggerID)
	assert.Equal(t, string(models.EnrollmentSourceAutomatic), created.Source)
}

func TestStageChangeResolvesContactFromDeal(t *testing.T) {
	store, matcher, _ := stageMatcherFixture(t)
	seedCampaign(t, store, stageCampaign("cmp-qualified", "qualified", "", ""))

	event := stageEvent("lead", "qualified")
	event.ContactID = ""

	require.NoError(t, matcher.HandleStageChange(context.Background(), event))

	_, err := store.ActiveEnrollment(context.Background(), "cmp-qualified", "c1")
	assert.NoError(t, err)
}

func TestStageChangeFiltersByFromStageAndPipeline(t *testing.T) {
	store, matcher, _ := stageMatcherFixture(t)
	seedCampaign(t, store, stageCampaign("cmp-from", "qualified", "demo", ""))
	seedCampaign(t, store, stageCampaign("cmp-pipe", "qualified", "", "enterprise"))

	require.NoError(t, matcher.HandleStageChange(context.Background(), stageEvent("lead", "qualified")))

	_, err := store.ActiveEnrollment(context.Background(), "cmp-from", "c1")
	assert.Error(t, err, "from_stage mismatch must not enroll")

	_, err = store.ActiveEnrollment(context.Background(), "cmp-pipe", "c1")
	assert.Error(t, err, "pipeline mismatch must not enroll")
}

func TestStageChangeSkipsManualPolicyCampaign(t *testing.T) {
	store, matcher, _ := stageMatcherFixture(t)
	manual := stageCampaign("cmp-manual", "qualified", "", "")
	manual.EnrollmentPolicy = models.EnrollmentPolicyManual
	seedCampaign(t, store, manual)

	require.NoError(t, matcher.HandleStageChange(context.Background(), stageEvent("lead", "qualified")))

	_, err := store.ActiveEnrollment(context.Background(), "cmp-manual", "c1")
	assert.Error(t, err, "manual-policy campaigns only enroll explicitly")
}

func TestStageChangeUnknownDealIsIgnored(t *testing.T) {
	store, matcher, _ := stageMatcherFixture(t)
	seedCampaign(t, store, stageCampaign("cmp-qualified", "qualified", "", ""))

	event := stageEvent("lead", "qualified")
	event.ContactID = ""
	event.DealID = "ghost"

	require.NoError(t, matcher.HandleStageChange(context.Background(), event))

	_, err := store.ActiveEnrollment(context.Background(), "cmp-qualified", "c1")
	assert.Error(t, err)
}

func TestStageChangeExitRunsBeforeEntry(t *testing.T) {
	store, matcher, bus := stageMatcherFixture(t)
	ctx := context.Background()

	seedCampaign(t, store, stageCampaign("cmp-lead", "lead", "", ""))
	seedCampaign(t, store, stageCampaign("cmp-qualified", "qualified", "", ""))

	// Contact is currently enrolled via the lead-stage campaign.
	require.NoError(t, matcher.HandleStageChange(ctx, stageEvent("new", "lead")))
	enrolled, err := store.ActiveEnrollment(ctx, "cmp-lead", "c1")
	require.NoError(t, err)

	// Moving lead -> qualified exits the lead campaign and enters the
	// qualified one on the same event.
	require.NoError(t, matcher.HandleStageChange(ctx, stageEvent("lead", "qualified")))

	exited, err := store.EnrollmentByID(ctx, enrolled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusExited, exited.Status)
	assert.Equal(t, models.ExitReasonStageChanged, exited.ExitReason)
	require.NotNil(t, exited.ExitedAt)

	// Pending executions of the exited enrollment are cancelled.
	for _, execution := range store.ExecutionsByEnrollment(enrolled.ID) {
		assert.NotEqual(t, models.ExecutionStatusPending, execution.Status)
	}

	_, err = store.ActiveEnrollment(ctx, "cmp-qualified", "c1")
	assert.NoError(t, err)

	assert.Contains(t, bus.eventTypes(), events.EnrollmentExitedEvent)
}

func TestStageChangeRefusalsDoNotStopOtherTriggers(t *testing.T) {
	store, matcher, _ := stageMatcherFixture(t)
	ctx := context.Background()

	capped := stageCampaign("cmp-capped", "qualified", "", "")
	capped.EnrollmentCap = 1
	capped.EnrolledCount = 1
	capped.Triggers[0].Priority = 10
	seedCampaign(t, store, capped)
	seedCampaign(t, store, stageCampaign("cmp-open", "qualified", "", ""))

	require.NoError(t, matcher.HandleStageChange(ctx, stageEvent("lead", "qualified")))

	_, err := store.ActiveEnrollment(ctx, "cmp-capped", "c1")
	assert.Error(t, err)

	_, err = store.ActiveEnrollment(ctx, "cmp-open", "c1")
	assert.NoError(t, err)
}

func TestStageChangeWithoutFromStageSkipsExitPass(t *testing.T) {
	store, matcher, _ := stageMatcherFixture(t)
	ctx := context.Background()

	seedCampaign(t, store, stageCampaign("cmp-lead", "lead", "", ""))
	require.NoError(t, matcher.HandleStageChange(ctx, stageEvent("", "lead")))

	enrolled, err := store.ActiveEnrollment(ctx, "cmp-lead", "c1")
	require.NoError(t, err)

	// An event with an empty from_stage cannot exit anything, even when
	// the to_stage would re-match later processing.
	require.NoError(t, matcher.HandleStageChange(ctx, stageEvent("", "qualified")))

	still, err := store.EnrollmentByID(ctx, enrolled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, still.Status)
}
