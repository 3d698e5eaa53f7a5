package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrCampaignNotFound is returned when a campaign is not found.
var ErrCampaignNotFound = persistence.ErrCampaignNotFound

// CampaignService owns campaign catalog operations: create, update,
// lifecycle transitions, soft delete. Activation validates the full
// definition including per-step configuration schemas.
type CampaignService struct {
	store     persistence.Persistence
	registry  *registry.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewCampaignService(store persistence.Persistence, reg *registry.Registry, logger *slog.Logger) *CampaignService {
	return &CampaignService{
		store:     store,
		registry:  reg,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("module", "campaign_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *CampaignService) HealthCheck(ctx context.Context) (string, bool) {
	if s.store == nil {
		return "Persistence layer not initialized", false
	}

	err := s.store.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create persists a new draft campaign.
func (s *CampaignService) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if campaign == nil {
		return nil, ErrCampaignNil
	}

	now := time.Now().UTC()

	if campaign.ID == "" {
		campaign.ID = uuid.Must(uuid.NewV7()).String()
	}

	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	if campaign.EnrollmentPolicy == "" {
		campaign.EnrollmentPolicy = models.EnrollmentPolicyAutomatic
	}

	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	s.assignChildIDs(campaign)

	err := s.validate(campaign)
	if err != nil {
		return nil, err
	}

	err = s.store.SaveCampaign(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	s.logger.Info("Created campaign",
		"campaign_id", campaign.ID,
		"tenant_id", campaign.TenantID,
		"name", campaign.Name)

	return campaign, nil
}

// Update replaces the campaign definition. Archived campaigns are read only.
func (s *CampaignService) Update(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if campaign == nil {
		return nil, ErrCampaignNil
	}

	current, err := s.store.CampaignByID(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	if current.Status == models.CampaignStatusArchived {
		return nil, ErrCannotModifyArchived
	}

	campaign.CreatedAt = current.CreatedAt
	campaign.UpdatedAt = time.Now().UTC()
	campaign.EnrolledCount = current.EnrolledCount
	campaign.CompletedCount = current.CompletedCount
	campaign.Revenue = current.Revenue

	s.assignChildIDs(campaign)

	err = s.validate(campaign)
	if err != nil {
		return nil, err
	}

	err = s.store.SaveCampaign(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	return campaign, nil
}

// Get returns one campaign with its triggers and steps.
func (s *CampaignService) Get(ctx context.Context, id string) (*models.Campaign, error) {
	return s.store.CampaignByID(ctx, id)
}

// Activate moves a draft or paused campaign to active. An activatable
// campaign needs at least one active trigger, at least one step, and every
// step's configuration must pass its kind's schema.
func (s *CampaignService) Activate(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.store.CampaignByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusPaused {
		return nil, ErrNotActivatable
	}

	if len(campaign.Steps) == 0 {
		return nil, ErrStepsRequired
	}

	if !s.hasActiveTrigger(campaign) {
		return nil, ErrTriggersRequired
	}

	err = models.ValidateSteps(campaign.Steps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSteps, err)
	}

	if s.registry != nil {
		for _, step := range campaign.Steps {
			_, err := s.registry.CreateHandler(step.Kind, step.Config)
			if err != nil {
				return nil, fmt.Errorf("%w: step %d (%s): %w", ErrInvalidSteps, step.StepOrder, step.Kind, err)
			}
		}
	}

	campaign.Status = models.CampaignStatusActive
	campaign.UpdatedAt = time.Now().UTC()

	err = s.store.SaveCampaign(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to activate campaign: %w", err)
	}

	s.logger.Info("Activated campaign", "campaign_id", campaign.ID, "tenant_id", campaign.TenantID)

	return campaign, nil
}

// Pause stops new enrollments and step execution for an active campaign.
func (s *CampaignService) Pause(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.store.CampaignByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusActive {
		return nil, ErrNotPausable
	}

	campaign.Status = models.CampaignStatusPaused
	campaign.UpdatedAt = time.Now().UTC()

	err = s.store.SaveCampaign(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to pause campaign: %w", err)
	}

	return campaign, nil
}

// Archive retires the campaign permanently.
func (s *CampaignService) Archive(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.store.CampaignByID(ctx, id)
	if err != nil {
		return nil, err
	}

	campaign.Status = models.CampaignStatusArchived
	campaign.UpdatedAt = time.Now().UTC()

	err = s.store.SaveCampaign(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to archive campaign: %w", err)
	}

	return campaign, nil
}

// Performance returns the tenant's per-campaign reporting aggregate.
func (s *CampaignService) Performance(ctx context.Context, tenantID string) ([]*persistence.CampaignPerformance, error) {
	return s.store.CampaignPerformanceByTenant(ctx, tenantID)
}

// EnrollmentCounts returns the tenant's enrollment totals per status.
func (s *CampaignService) EnrollmentCounts(ctx context.Context, tenantID string) (map[models.EnrollmentStatus]int64, error) {
	return s.store.EnrollmentCountsByStatus(ctx, tenantID)
}

// Delete soft-deletes the campaign.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteCampaign(ctx, id)
}

func (s *CampaignService) validate(campaign *models.Campaign) error {
	if campaign.Name == "" {
		return ErrCampaignNameRequired
	}

	err := s.validator.Struct(campaign)
	if err != nil {
		return NewValidationError("validate_campaign", "invalid_campaign", err.Error(), ErrInvalidRequest)
	}

	if len(campaign.Steps) > 0 {
		err = models.ValidateSteps(campaign.Steps)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSteps, err)
		}
	}

	return nil
}

func (s *CampaignService) assignChildIDs(campaign *models.Campaign) {
	for _, trigger := range campaign.Triggers {
		if trigger.ID == "" {
			trigger.ID = uuid.Must(uuid.NewV7()).String()
		}

		trigger.CampaignID = campaign.ID
		trigger.TenantID = campaign.TenantID
	}

	for _, step := range campaign.Steps {
		if step.ID == "" {
			step.ID = uuid.Must(uuid.NewV7()).String()
		}

		step.CampaignID = campaign.ID
	}
}

func (s *CampaignService) hasActiveTrigger(campaign *models.Campaign) bool {
	for _, trigger := range campaign.Triggers {
		if trigger.Active {
			return true
		}
	}

	return false
}
