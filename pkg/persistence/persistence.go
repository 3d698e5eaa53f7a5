// Package persistence provides the data storage abstraction for campaigns,
// enrollments and step executions.
package persistence

import (
	"context"
	"time"

	"github.com/evercrm/cadence/pkg/models"
)

// CounterDelta is an additive update to a campaign's cached counters. The
// store applies it atomically (x = x + delta), never read-modify-write.
type CounterDelta struct {
	Enrolled  int64
	Completed int64
	Revenue   float64
}

// StepCounterDelta is an additive update to a step's running counters.
type StepCounterDelta struct {
	Executed  int64
	Succeeded int64
	Failed    int64
}

// CampaignPerformance is one row of the per-campaign aggregate consumed by
// reporting.
type CampaignPerformance struct {
	CampaignID     string  `json:"campaign_id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	EnrolledCount  int64   `json:"enrolled_count"`
	CompletedCount int64   `json:"completed_count"`
	ActiveCount    int64   `json:"active_count"`
	ExitedCount    int64   `json:"exited_count"`
	Revenue        float64 `json:"revenue"`
}

// Persistence is the tenant-scoped store consumed by the automation core.
type Persistence interface {
	// Campaign catalog.
	SaveCampaign(ctx context.Context, campaign *models.Campaign) error
	CampaignByID(ctx context.Context, id string) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error

	// ActiveStageTriggers returns active stage_change triggers belonging to
	// active campaigns of the tenant.
	ActiveStageTriggers(ctx context.Context, tenantID string) ([]*models.CampaignTrigger, error)
	TriggersByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignTrigger, error)

	IncrementCampaignCounters(ctx context.Context, campaignID string, delta CounterDelta) error
	IncrementStepCounters(ctx context.Context, stepID string, delta StepCounterDelta) error

	// Reporting aggregates, read-only.
	CampaignPerformanceByTenant(ctx context.Context, tenantID string) ([]*CampaignPerformance, error)
	EnrollmentCountsByStatus(ctx context.Context, tenantID string) (map[models.EnrollmentStatus]int64, error)

	// Enrollments.
	//
	// CreateEnrollment returns ErrEnrollmentExists when an active or paused
	// enrollment already exists for the (campaign, contact) pair.
	CreateEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error
	SaveEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error
	EnrollmentByID(ctx context.Context, id string) (*models.CampaignEnrollment, error)
	// ActiveEnrollment returns the active or paused enrollment for the pair,
	// or ErrEnrollmentNotFound.
	ActiveEnrollment(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error)
	ActiveEnrollmentsByContact(ctx context.Context, tenantID, contactID string) ([]*models.CampaignEnrollment, error)
	// LatestEndedEnrollment returns the most recently ended enrollment for
	// the pair, or ErrEnrollmentNotFound; used for re-enrollment cooldowns.
	LatestEndedEnrollment(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error)

	// Executions.
	SaveExecution(ctx context.Context, execution *models.CampaignStepExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.CampaignStepExecution, error)
	// DuePendingExecutions returns pending executions scheduled at or before
	// now whose enrollment is active, oldest first, capped at limit.
	DuePendingExecutions(ctx context.Context, now time.Time, limit int) ([]*models.CampaignStepExecution, error)
	// ClaimExecution atomically moves a pending execution to running.
	// Returns false when another worker won the claim.
	ClaimExecution(ctx context.Context, id string, startedAt time.Time) (bool, error)
	// CancelPendingExecutions marks the enrollment's pending executions
	// skipped, so an exited enrollment receives no further work.
	CancelPendingExecutions(ctx context.Context, enrollmentID string) error

	// Contacts, deals, tasks.
	SaveContact(ctx context.Context, contact *models.Contact) error
	ContactByID(ctx context.Context, tenantID, id string) (*models.Contact, error)
	SaveDeal(ctx context.Context, deal *models.Deal) error
	DealByID(ctx context.Context, tenantID, id string) (*models.Deal, error)
	SaveTask(ctx context.Context, task *models.ContactTask) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
