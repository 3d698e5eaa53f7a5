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
	"github.com/google/uuid"
)

var (
	// ErrCampaignNotActive indicates an enrollment attempt into a campaign
	// that is not accepting enrollments.
	ErrCampaignNotActive = errors.New("campaign is not active")

	// ErrEnrollmentCapReached indicates the campaign's enrollment cap has
	// been reached.
	ErrEnrollmentCapReached = errors.New("campaign enrollment cap reached")

	// ErrReenrollmentBlocked indicates the contact already went through the
	// campaign and re-enrollment is disabled or still cooling down.
	ErrReenrollmentBlocked = errors.New("re-enrollment is not allowed")

	// ErrEnrollmentContended indicates another instance is enrolling the
	// same contact right now.
	ErrEnrollmentContended = errors.New("enrollment in progress elsewhere")

	// ErrManualEnrollmentOnly indicates a trigger matched a campaign whose
	// policy admits only explicit enrollment.
	ErrManualEnrollmentOnly = errors.New("campaign only accepts manual enrollment")
)

// ContactLocker serializes enrollment attempts for a (campaign, contact)
// pair across engine instances. Implemented by the Redis lock manager.
type ContactLocker interface {
	Acquire(ctx context.Context, campaignID, contactID string) (func(), bool, error)
}

// EnrollRequest describes one enrollment attempt.
type EnrollRequest struct {
	TenantID   string
	CampaignID string
	ContactID  string
	DealID     string
	Source     models.EnrollmentSource
	TriggerID  string
	Metadata   map[string]any
}

// Enroller creates enrollments and schedules the first step. Enrollment is
// idempotent per (campaign, contact): a second attempt while one is live
// returns the existing enrollment.
type Enroller struct {
	store  persistence.Persistence
	bus    eventbus.EventPublisher
	locks  ContactLocker
	logger *slog.Logger
}

func NewEnroller(store persistence.Persistence, bus eventbus.EventPublisher, locks ContactLocker, logger *slog.Logger) *Enroller {
	return &Enroller{
		store:  store,
		bus:    bus,
		locks:  locks,
		logger: logger.With("module", "enroller"),
	}
}

// Enroll enrolls the contact into the campaign and schedules its first step
// for immediate execution. The first step's configured delay applies between
// steps, not before the first one.
func (e *Enroller) Enroll(ctx context.Context, req EnrollRequest) (*models.CampaignEnrollment, error) {
	logger := e.logger.With(
		"tenant_id", req.TenantID,
		"campaign_id", req.CampaignID,
		"contact_id", req.ContactID,
	)

	campaign, err := e.store.CampaignByID(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", req.CampaignID, err)
	}

	if !campaign.IsActive() {
		return nil, ErrCampaignNotActive
	}

	if req.Source == models.EnrollmentSourceAutomatic && campaign.EnrollmentPolicy == models.EnrollmentPolicyManual {
		return nil, ErrManualEnrollmentOnly
	}

	contact, err := e.store.ContactByID(ctx, req.TenantID, req.ContactID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.Warn("Contact not found, skipping enrollment")

			return nil, err
		}

		return nil, fmt.Errorf("failed to load contact %s: %w", req.ContactID, err)
	}

	if e.locks != nil {
		release, acquired, err := e.locks.Acquire(ctx, req.CampaignID, req.ContactID)
		if err != nil {
			return nil, err
		}

		if !acquired {
			existing, err := e.store.ActiveEnrollment(ctx, req.CampaignID, req.ContactID)
			if err == nil {
				return existing, nil
			}

			return nil, ErrEnrollmentContended
		}

		defer release()
	}

	// Advisory check first; the partial unique index closes the race on
	// concurrent creates.
	existing, err := e.store.ActiveEnrollment(ctx, req.CampaignID, req.ContactID)
	if err == nil {
		logger.Debug("Contact already enrolled", "enrollment_id", existing.ID)

		return existing, nil
	}

	if !persistence.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing enrollment: %w", err)
	}

	if campaign.EnrollmentCap > 0 && campaign.EnrolledCount >= int64(campaign.EnrollmentCap) {
		return nil, ErrEnrollmentCapReached
	}

	err = e.checkReenrollment(ctx, campaign, req.ContactID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	enrollment := &models.CampaignEnrollment{
		ID:         uuid.Must(uuid.NewV7()).String(),
		TenantID:   req.TenantID,
		CampaignID: campaign.ID,
		ContactID:  contact.ID,
		DealID:     req.DealID,
		Status:     models.EnrollmentStatusActive,
		Source:     req.Source,
		Metadata:   req.Metadata,
		EnrolledAt: now,
	}

	firstStep := campaign.FirstStep()
	if firstStep != nil {
		enrollment.CurrentStepID = firstStep.ID
		enrollment.CurrentStepOrder = firstStep.StepOrder
		enrollment.NextStepScheduledAt = &now
	} else {
		// A campaign without steps completes the enrollment on the spot.
		enrollment.Complete(now)
	}

	err = e.store.CreateEnrollment(ctx, enrollment)
	if err != nil {
		if persistence.IsEnrollmentExists(err) {
			existing, lookupErr := e.store.ActiveEnrollment(ctx, req.CampaignID, req.ContactID)
			if lookupErr == nil {
				logger.Debug("Lost enrollment race, returning winner", "enrollment_id", existing.ID)

				return existing, nil
			}
		}

		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	delta := persistence.CounterDelta{Enrolled: 1}
	if firstStep == nil {
		delta.Completed = 1
	}

	err = e.store.IncrementCampaignCounters(ctx, campaign.ID, delta)
	if err != nil {
		logger.Error("Failed to increment campaign counters", "error", err)
	}

	if firstStep != nil {
		execution := &models.CampaignStepExecution{
			ID:           uuid.Must(uuid.NewV7()).String(),
			TenantID:     req.TenantID,
			CampaignID:   campaign.ID,
			EnrollmentID: enrollment.ID,
			StepID:       firstStep.ID,
			Status:       models.ExecutionStatusPending,
			ScheduledAt:  now,
		}

		err = e.store.SaveExecution(ctx, execution)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule first step: %w", err)
		}
	}

	e.publishCreated(ctx, enrollment, req)

	logger.Info("Enrolled contact",
		"enrollment_id", enrollment.ID,
		"source", req.Source,
		"first_step", firstStep != nil)

	return enrollment, nil
}

func (e *Enroller) checkReenrollment(ctx context.Context, campaign *models.Campaign, contactID string) error {
	previous, err := e.store.LatestEndedEnrollment(ctx, campaign.ID, contactID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to check previous enrollment: %w", err)
	}

	if !campaign.AllowReenrollment {
		return ErrReenrollmentBlocked
	}

	if campaign.ReenrollCooldown > 0 {
		endedAt := previous.EnrolledAt
		if previous.CompletedAt != nil {
			endedAt = *previous.CompletedAt
		} else if previous.ExitedAt != nil {
			endedAt = *previous.ExitedAt
		}

		cooldownEnds := endedAt.AddDate(0, 0, campaign.ReenrollCooldown)
		if time.Now().UTC().Before(cooldownEnds) {
			return fmt.Errorf("%w: cooldown ends %s", ErrReenrollmentBlocked, cooldownEnds.Format(time.RFC3339))
		}
	}

	return nil
}

func (e *Enroller) publishCreated(ctx context.Context, enrollment *models.CampaignEnrollment, req EnrollRequest) {
	if e.bus == nil {
		return
	}

	event := events.EnrollmentCreated{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentCreatedEvent, enrollment.TenantID, enrollment.CampaignID),
		EnrollmentID: enrollment.ID,
		ContactID:    enrollment.ContactID,
		Source:       string(req.Source),
		TriggerID:    req.TriggerID,
	}

	err := e.bus.Publish(ctx, enrollment.CampaignID, event)
	if err != nil {
		e.logger.Error("Failed to publish enrollment created event", "error", err)
	}
}
