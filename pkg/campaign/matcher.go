package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evercrm/cadence/pkg/eventbus"
	"github.com/evercrm/cadence/pkg/events"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
)

// TriggerMatcher evaluates deal stage changes against campaign triggers.
// Each event runs two passes: first exit enrollments whose deal left the
// stage their trigger targets, then enroll contacts whose deal arrived at a
// stage an active trigger targets. Exit runs first so a contact can leave
// one campaign and enter the next on the same stage change.
type TriggerMatcher struct {
	store    persistence.Persistence
	enroller *Enroller
	bus      eventbus.EventPublisher
	logger   *slog.Logger
}

func NewTriggerMatcher(store persistence.Persistence, enroller *Enroller, bus eventbus.EventPublisher, logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		store:    store,
		enroller: enroller,
		bus:      bus,
		logger:   logger.With("module", "trigger_matcher"),
	}
}

// HandleStageChange processes one stage change event. Failures on a single
// enrollment or trigger are logged and do not stop the remaining matches.
func (tm *TriggerMatcher) HandleStageChange(ctx context.Context, event *models.StageChangeEvent) error {
	logger := tm.logger.With(
		"tenant_id", event.TenantID,
		"deal_id", event.DealID,
		"pipeline", event.Pipeline,
		"from_stage", event.FromStage,
		"to_stage", event.ToStage,
	)

	contactID := event.ContactID
	if contactID == "" && event.DealID != "" {
		deal, err := tm.store.DealByID(ctx, event.TenantID, event.DealID)

		switch {
		case err == nil:
			contactID = deal.ContactID
		case persistence.IsNotFound(err):
			logger.Warn("Stage change references unknown deal, ignoring")

			return nil
		default:
			return fmt.Errorf("failed to resolve deal %s: %w", event.DealID, err)
		}
	}

	if contactID == "" {
		logger.Warn("Stage change has no resolvable contact, ignoring")

		return nil
	}

	exited := tm.runExitPass(ctx, event, contactID, logger)
	enrolled := tm.runEntryPass(ctx, event, contactID, logger)

	logger.Info("Processed stage change",
		"contact_id", contactID,
		"exited", exited,
		"enrolled", enrolled)

	return nil
}

// runExitPass exits active enrollments whose stage_change trigger targeted
// the stage the deal just left.
func (tm *TriggerMatcher) runExitPass(ctx context.Context, event *models.StageChangeEvent, contactID string, logger *slog.Logger) int {
	if event.FromStage == "" {
		return 0
	}

	enrollments, err := tm.store.ActiveEnrollmentsByContact(ctx, event.TenantID, contactID)
	if err != nil {
		logger.Error("Failed to load active enrollments for exit pass", "error", err)

		return 0
	}

	exited := 0

	for _, enrollment := range enrollments {
		triggers, err := tm.store.TriggersByCampaign(ctx, enrollment.CampaignID)
		if err != nil {
			logger.Error("Failed to load campaign triggers",
				"campaign_id", enrollment.CampaignID,
				"error", err)

			continue
		}

		if !tm.stageLeft(triggers, event) {
			continue
		}

		err = tm.exitEnrollment(ctx, enrollment)
		if err != nil {
			logger.Error("Failed to exit enrollment",
				"enrollment_id", enrollment.ID,
				"error", err)

			continue
		}

		logger.Info("Exited enrollment on stage change",
			"enrollment_id", enrollment.ID,
			"campaign_id", enrollment.CampaignID)

		exited++
	}

	return exited
}

// stageLeft reports whether any stage_change trigger of the campaign targets
// the stage the deal moved away from.
func (tm *TriggerMatcher) stageLeft(triggers []*models.CampaignTrigger, event *models.StageChangeEvent) bool {
	for _, trigger := range triggers {
		if !trigger.Active {
			continue
		}

		config, ok := trigger.StageChange()
		if !ok {
			continue
		}

		if config.Pipeline != "" && config.Pipeline != event.Pipeline {
			continue
		}

		if config.ToStage == event.FromStage {
			return true
		}
	}

	return false
}

func (tm *TriggerMatcher) exitEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	enrollment.Exit(models.ExitReasonStageChanged, time.Now().UTC())

	err := tm.store.SaveEnrollment(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("failed to save exited enrollment: %w", err)
	}

	err = tm.store.CancelPendingExecutions(ctx, enrollment.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel pending executions: %w", err)
	}

	tm.publishExited(ctx, enrollment)

	return nil
}

// runEntryPass enrolls the contact into every active campaign whose
// stage_change trigger matches the arrived-at stage.
func (tm *TriggerMatcher) runEntryPass(ctx context.Context, event *models.StageChangeEvent, contactID string, logger *slog.Logger) int {
	triggers, err := tm.store.ActiveStageTriggers(ctx, event.TenantID)
	if err != nil {
		logger.Error("Failed to load active stage triggers", "error", err)

		return 0
	}

	enrolled := 0

	for _, trigger := range triggers {
		config, ok := trigger.StageChange()
		if !ok {
			continue
		}

		if config.ToStage != event.ToStage {
			continue
		}

		if config.Pipeline != "" && config.Pipeline != event.Pipeline {
			continue
		}

		if config.FromStage != "" && config.FromStage != event.FromStage {
			continue
		}

		_, err := tm.enroller.Enroll(ctx, EnrollRequest{
			TenantID:   event.TenantID,
			CampaignID: trigger.CampaignID,
			ContactID:  contactID,
			DealID:     event.DealID,
			Source:     models.EnrollmentSourceAutomatic,
			TriggerID:  trigger.ID,
		})
		if err != nil {
			tm.logEnrollOutcome(logger, trigger, err)

			continue
		}

		enrolled++
	}

	return enrolled
}

// logEnrollOutcome downgrades expected enrollment refusals to debug. Only
// genuine failures surface as errors.
func (tm *TriggerMatcher) logEnrollOutcome(logger *slog.Logger, trigger *models.CampaignTrigger, err error) {
	switch {
	case errors.Is(err, ErrCampaignNotActive),
		errors.Is(err, ErrEnrollmentCapReached),
		errors.Is(err, ErrReenrollmentBlocked),
		errors.Is(err, ErrManualEnrollmentOnly),
		persistence.IsNotFound(err):
		logger.Debug("Trigger matched but enrollment refused",
			"trigger_id", trigger.ID,
			"campaign_id", trigger.CampaignID,
			"reason", err)
	default:
		logger.Error("Failed to enroll on matched trigger",
			"trigger_id", trigger.ID,
			"campaign_id", trigger.CampaignID,
			"error", err)
	}
}

func (tm *TriggerMatcher) publishExited(ctx context.Context, enrollment *models.CampaignEnrollment) {
	if tm.bus == nil {
		return
	}

	event := events.EnrollmentExited{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentExitedEvent, enrollment.TenantID, enrollment.CampaignID),
		EnrollmentID: enrollment.ID,
		ContactID:    enrollment.ContactID,
		ExitReason:   enrollment.ExitReason,
	}

	err := tm.bus.Publish(ctx, enrollment.CampaignID, event)
	if err != nil {
		tm.logger.Error("Failed to publish enrollment exited event", "error", err)
	}
}
