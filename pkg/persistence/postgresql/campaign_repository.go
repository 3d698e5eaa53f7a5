package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
)

// CampaignRepository handles campaign, trigger and step database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Save upserts the campaign base row and replaces its triggers and steps in
// one transaction.
func (r *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) (err error) {
	now := time.Now().UTC()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	if campaign.ID == "" {
		id, idErr := uuid.NewV7()
		if idErr != nil {
			return fmt.Errorf("failed to generate campaign ID: %w", idErr)
		}

		campaign.ID = id.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	campaignQuery := `
		INSERT INTO campaigns (id, tenant_id, name, type, status,
			enrollment_policy, enrollment_cap, allow_reenrollment,
			reenroll_cooldown_days, respect_business_hours, timezone,
			enrolled_count, completed_count, revenue,
			created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			enrollment_policy = EXCLUDED.enrollment_policy,
			enrollment_cap = EXCLUDED.enrollment_cap,
			allow_reenrollment = EXCLUDED.allow_reenrollment,
			reenroll_cooldown_days = EXCLUDED.reenroll_cooldown_days,
			respect_business_hours = EXCLUDED.respect_business_hours,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = tx.ExecContext(ctx, campaignQuery,
		campaign.ID,
		campaign.TenantID,
		campaign.Name,
		campaign.Type,
		campaign.Status,
		campaign.EnrollmentPolicy,
		campaign.EnrollmentCap,
		campaign.AllowReenrollment,
		campaign.ReenrollCooldown,
		campaign.RespectBusinessHours,
		campaign.Timezone,
		campaign.EnrolledCount,
		campaign.CompletedCount,
		campaign.Revenue,
		campaign.CreatedAt,
		campaign.UpdatedAt,
		campaign.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign base: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM campaign_steps WHERE campaign_id = $1", campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing steps: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM campaign_triggers WHERE campaign_id = $1", campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing triggers: %w", err)
	}

	for _, trigger := range campaign.Triggers {
		err = r.insertTrigger(ctx, tx, campaign, trigger, now)
		if err != nil {
			return err
		}
	}

	for _, step := range campaign.Steps {
		err = r.insertStep(ctx, tx, campaign, step, now)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit campaign save: %w", err)
	}

	return nil
}

func (r *CampaignRepository) insertTrigger(ctx context.Context, tx *sql.Tx, campaign *models.Campaign, trigger *models.CampaignTrigger, now time.Time) error {
	if trigger.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate trigger ID: %w", err)
		}

		trigger.ID = id.String()
	}

	trigger.CampaignID = campaign.ID
	trigger.TenantID = campaign.TenantID

	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = now
	}

	trigger.UpdatedAt = now

	configJSON, err := json.Marshal(trigger.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	conditionsJSON, err := json.Marshal(trigger.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}

	query := `
		INSERT INTO campaign_triggers (id, campaign_id, tenant_id, kind,
			config, conditions, priority, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, query,
		trigger.ID,
		trigger.CampaignID,
		trigger.TenantID,
		trigger.Kind,
		configJSON,
		conditionsJSON,
		trigger.Priority,
		trigger.Active,
		trigger.CreatedAt,
		trigger.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save trigger %s: %w", trigger.ID, err)
	}

	return nil
}

func (r *CampaignRepository) insertStep(ctx context.Context, tx *sql.Tx, campaign *models.Campaign, step *models.CampaignStep, now time.Time) error {
	if step.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate step ID: %w", err)
		}

		step.ID = id.String()
	}

	step.CampaignID = campaign.ID

	if step.CreatedAt.IsZero() {
		step.CreatedAt = now
	}

	step.UpdatedAt = now

	configJSON, err := json.Marshal(step.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal step config: %w", err)
	}

	query := `
		INSERT INTO campaign_steps (id, campaign_id, step_order, kind, config,
			delay_value, delay_unit, true_step_id, false_step_id,
			executed_count, succeeded_count, failed_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = tx.ExecContext(ctx, query,
		step.ID,
		step.CampaignID,
		step.StepOrder,
		step.Kind,
		configJSON,
		step.DelayValue,
		delayUnitOrDefault(step.DelayUnit),
		nullString(step.TrueStepID),
		nullString(step.FalseStepID),
		step.ExecutedCount,
		step.SucceededCount,
		step.FailedCount,
		step.CreatedAt,
		step.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save step %s: %w", step.ID, err)
	}

	return nil
}

func delayUnitOrDefault(unit models.DelayUnit) models.DelayUnit {
	if unit == "" {
		return models.DelayUnitHours
	}

	return unit
}

// GetByID returns a campaign with its triggers and steps loaded.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , name
		  , type
		  , status
		  , enrollment_policy
		  , enrollment_cap
		  , allow_reenrollment
		  , reenroll_cooldown_days
		  , respect_business_hours
		  , timezone
		  , enrolled_count
		  , completed_count
		  , revenue
		  , created_at
		  , updated_at
		  , deleted_at
		FROM campaigns
		WHERE id = $1 AND deleted_at IS NULL
	`

	row := r.db.QueryRowContext(ctx, query, id)

	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	campaign.Triggers, err = r.TriggersByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	campaign.Steps, err = r.stepsByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	return campaign, nil
}

// Delete soft deletes a campaign by setting deleted_at.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE campaigns SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.NewCampaignError("Delete", id, persistence.ErrCampaignNotFound)
	}

	return nil
}

// ActiveStageTriggers returns active stage_change triggers whose campaigns
// are active, highest priority first.
func (r *CampaignRepository) ActiveStageTriggers(ctx context.Context, tenantID string) ([]*models.CampaignTrigger, error) {
	query := `
		SELECT
			t.id
		  , t.campaign_id
		  , t.tenant_id
		  , t.kind
		  , t.config
		  , t.conditions
		  , t.priority
		  , t.active
		  , t.created_at
		  , t.updated_at
		FROM campaign_triggers t
		JOIN campaigns c ON c.id = t.campaign_id
		WHERE t.tenant_id = $1
		  AND t.kind = 'stage_change'
		  AND t.active
		  AND c.status = 'active'
		  AND c.deleted_at IS NULL
		ORDER BY t.priority DESC, t.id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage triggers: %w", err)
	}

	defer r.closeRows(ctx, rows)

	return scanTriggers(rows)
}

// TriggersByCampaign returns all triggers of one campaign.
func (r *CampaignRepository) TriggersByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignTrigger, error) {
	query := `
		SELECT
			id
		  , campaign_id
		  , tenant_id
		  , kind
		  , config
		  , conditions
		  , priority
		  , active
		  , created_at
		  , updated_at
		FROM campaign_triggers
		WHERE campaign_id = $1
		ORDER BY priority DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign triggers: %w", err)
	}

	defer r.closeRows(ctx, rows)

	return scanTriggers(rows)
}

func (r *CampaignRepository) stepsByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignStep, error) {
	query := `
		SELECT
			id
		  , campaign_id
		  , step_order
		  , kind
		  , config
		  , delay_value
		  , delay_unit
		  , true_step_id
		  , false_step_id
		  , executed_count
		  , succeeded_count
		  , failed_count
		  , created_at
		  , updated_at
		FROM campaign_steps
		WHERE campaign_id = $1
		ORDER BY step_order
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign steps: %w", err)
	}

	defer r.closeRows(ctx, rows)

	steps := make([]*models.CampaignStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

// IncrementCounters applies an additive update to the campaign's cached
// counters. The arithmetic happens in the database, so concurrent updates
// never lose increments.
func (r *CampaignRepository) IncrementCounters(ctx context.Context, campaignID string, delta persistence.CounterDelta) error {
	query := `
		UPDATE campaigns SET
			enrolled_count = enrolled_count + $2,
			completed_count = completed_count + $3,
			revenue = revenue + $4,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, campaignID, delta.Enrolled, delta.Completed, delta.Revenue)
	if err != nil {
		return fmt.Errorf("failed to increment campaign counters: %w", err)
	}

	return nil
}

// IncrementStepCounters applies an additive update to a step's counters.
func (r *CampaignRepository) IncrementStepCounters(ctx context.Context, stepID string, delta persistence.StepCounterDelta) error {
	query := `
		UPDATE campaign_steps SET
			executed_count = executed_count + $2,
			succeeded_count = succeeded_count + $3,
			failed_count = failed_count + $4,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, stepID, delta.Executed, delta.Succeeded, delta.Failed)
	if err != nil {
		return fmt.Errorf("failed to increment step counters: %w", err)
	}

	return nil
}

// PerformanceByTenant returns the per-campaign aggregate consumed by
// reporting: cached counters joined with live enrollment status counts.
func (r *CampaignRepository) PerformanceByTenant(ctx context.Context, tenantID string) ([]*persistence.CampaignPerformance, error) {
	query := `
		SELECT c.id, c.name, c.status,
		       c.enrolled_count, c.completed_count, c.revenue,
		       COUNT(e.id) FILTER (WHERE e.status IN ('active', 'paused')) AS active_count,
		       COUNT(e.id) FILTER (WHERE e.status = 'exited') AS exited_count
		FROM campaigns c
		LEFT JOIN campaign_enrollments e ON e.campaign_id = c.id
		WHERE c.tenant_id = $1 AND c.deleted_at IS NULL
		GROUP BY c.id, c.name, c.status, c.enrolled_count, c.completed_count, c.revenue
		ORDER BY c.id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign performance: %w", err)
	}

	defer r.closeRows(ctx, rows)

	result := make([]*persistence.CampaignPerformance, 0)

	for rows.Next() {
		var row persistence.CampaignPerformance

		err := rows.Scan(
			&row.CampaignID,
			&row.Name,
			&row.Status,
			&row.EnrolledCount,
			&row.CompletedCount,
			&row.Revenue,
			&row.ActiveCount,
			&row.ExitedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign performance: %w", err)
		}

		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign performance: %w", err)
	}

	return result, nil
}

func (r *CampaignRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var campaign models.Campaign

	err := row.Scan(
		&campaign.ID,
		&campaign.TenantID,
		&campaign.Name,
		&campaign.Type,
		&campaign.Status,
		&campaign.EnrollmentPolicy,
		&campaign.EnrollmentCap,
		&campaign.AllowReenrollment,
		&campaign.ReenrollCooldown,
		&campaign.RespectBusinessHours,
		&campaign.Timezone,
		&campaign.EnrolledCount,
		&campaign.CompletedCount,
		&campaign.Revenue,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
		&campaign.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &campaign, nil
}

func scanTriggers(rows *sql.Rows) ([]*models.CampaignTrigger, error) {
	triggers := make([]*models.CampaignTrigger, 0)

	for rows.Next() {
		var (
			trigger        models.CampaignTrigger
			configJSON     []byte
			conditionsJSON []byte
		)

		err := rows.Scan(
			&trigger.ID,
			&trigger.CampaignID,
			&trigger.TenantID,
			&trigger.Kind,
			&configJSON,
			&conditionsJSON,
			&trigger.Priority,
			&trigger.Active,
			&trigger.CreatedAt,
			&trigger.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}

		if err := unmarshalJSONColumn(configJSON, &trigger.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}

		if err := unmarshalJSONColumn(conditionsJSON, &trigger.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger conditions: %w", err)
		}

		triggers = append(triggers, &trigger)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}

	return triggers, nil
}

func scanStep(row rowScanner) (*models.CampaignStep, error) {
	var (
		step        models.CampaignStep
		configJSON  []byte
		trueStepID  sql.NullString
		falseStepID sql.NullString
	)

	err := row.Scan(
		&step.ID,
		&step.CampaignID,
		&step.StepOrder,
		&step.Kind,
		&configJSON,
		&step.DelayValue,
		&step.DelayUnit,
		&trueStepID,
		&falseStepID,
		&step.ExecutedCount,
		&step.SucceededCount,
		&step.FailedCount,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	step.TrueStepID = trueStepID.String
	step.FalseStepID = falseStepID.String

	if err := unmarshalJSONColumn(configJSON, &step.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step config: %w", err)
	}

	return &step, nil
}

func unmarshalJSONColumn(data []byte, target any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	return json.Unmarshal(data, target)
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
