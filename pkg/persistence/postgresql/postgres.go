// Package postgresql provides the PostgreSQL persistence implementation for
// the campaign automation engine.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	campaigns   *CampaignRepository
	enrollments *EnrollmentRepository
	executions  *ExecutionRepository
	contacts    *ContactRepository
}

// NewPersistence connects, runs migrations and returns a ready store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		campaigns:   NewCampaignRepository(database, logger),
		enrollments: NewEnrollmentRepository(database, logger),
		executions:  NewExecutionRepository(database, logger),
		contacts:    NewContactRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) SaveCampaign(ctx context.Context, campaign *models.Campaign) error {
	return p.campaigns.Save(ctx, campaign)
}

func (p *Persistence) CampaignByID(ctx context.Context, id string) (*models.Campaign, error) {
	return p.campaigns.GetByID(ctx, id)
}

func (p *Persistence) DeleteCampaign(ctx context.Context, id string) error {
	return p.campaigns.Delete(ctx, id)
}

func (p *Persistence) ActiveStageTriggers(ctx context.Context, tenantID string) ([]*models.CampaignTrigger, error) {
	return p.campaigns.ActiveStageTriggers(ctx, tenantID)
}

func (p *Persistence) TriggersByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignTrigger, error) {
	return p.campaigns.TriggersByCampaign(ctx, campaignID)
}

func (p *Persistence) IncrementCampaignCounters(ctx context.Context, campaignID string, delta persistence.CounterDelta) error {
	return p.campaigns.IncrementCounters(ctx, campaignID, delta)
}

func (p *Persistence) IncrementStepCounters(ctx context.Context, stepID string, delta persistence.StepCounterDelta) error {
	return p.campaigns.IncrementStepCounters(ctx, stepID, delta)
}

func (p *Persistence) CampaignPerformanceByTenant(ctx context.Context, tenantID string) ([]*persistence.CampaignPerformance, error) {
	return p.campaigns.PerformanceByTenant(ctx, tenantID)
}

func (p *Persistence) EnrollmentCountsByStatus(ctx context.Context, tenantID string) (map[models.EnrollmentStatus]int64, error) {
	return p.enrollments.CountsByStatus(ctx, tenantID)
}

func (p *Persistence) CreateEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	return p.enrollments.Create(ctx, enrollment)
}

func (p *Persistence) SaveEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	return p.enrollments.Save(ctx, enrollment)
}

func (p *Persistence) EnrollmentByID(ctx context.Context, id string) (*models.CampaignEnrollment, error) {
	return p.enrollments.GetByID(ctx, id)
}

func (p *Persistence) ActiveEnrollment(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error) {
	return p.enrollments.Active(ctx, campaignID, contactID)
}

func (p *Persistence) ActiveEnrollmentsByContact(ctx context.Context, tenantID, contactID string) ([]*models.CampaignEnrollment, error) {
	return p.enrollments.ActiveByContact(ctx, tenantID, contactID)
}

func (p *Persistence) LatestEndedEnrollment(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error) {
	return p.enrollments.LatestEnded(ctx, campaignID, contactID)
}

func (p *Persistence) SaveExecution(ctx context.Context, execution *models.CampaignStepExecution) error {
	return p.executions.Save(ctx, execution)
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.CampaignStepExecution, error) {
	return p.executions.GetByID(ctx, id)
}

func (p *Persistence) DuePendingExecutions(ctx context.Context, now time.Time, limit int) ([]*models.CampaignStepExecution, error) {
	return p.executions.DuePending(ctx, now, limit)
}

func (p *Persistence) ClaimExecution(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	return p.executions.Claim(ctx, id, startedAt)
}

func (p *Persistence) CancelPendingExecutions(ctx context.Context, enrollmentID string) error {
	return p.executions.CancelPending(ctx, enrollmentID)
}

func (p *Persistence) SaveContact(ctx context.Context, contact *models.Contact) error {
	return p.contacts.SaveContact(ctx, contact)
}

func (p *Persistence) ContactByID(ctx context.Context, tenantID, id string) (*models.Contact, error) {
	return p.contacts.ContactByID(ctx, tenantID, id)
}

func (p *Persistence) SaveDeal(ctx context.Context, deal *models.Deal) error {
	return p.contacts.SaveDeal(ctx, deal)
}

func (p *Persistence) DealByID(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	return p.contacts.DealByID(ctx, tenantID, id)
}

func (p *Persistence) SaveTask(ctx context.Context, task *models.ContactTask) error {
	return p.contacts.SaveTask(ctx, task)
}
