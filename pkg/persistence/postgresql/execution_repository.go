package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
)

// ExecutionRepository handles step execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id
  , tenant_id
  , campaign_id
  , enrollment_id
  , step_id
  , status
  , scheduled_at
  , started_at
  , completed_at
  , result
  , error_message
  , opened_at
  , clicked_at
  , replied_at
`

// Save upserts an execution.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.CampaignStepExecution) error {
	resultJSON, err := json.Marshal(execution.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	query := `
		INSERT INTO campaign_step_executions (id, tenant_id, campaign_id,
			enrollment_id, step_id, status, scheduled_at, started_at,
			completed_at, result, error_message, opened_at, clicked_at, replied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			result = EXCLUDED.result,
			error_message = EXCLUDED.error_message,
			opened_at = EXCLUDED.opened_at,
			clicked_at = EXCLUDED.clicked_at,
			replied_at = EXCLUDED.replied_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.TenantID,
		execution.CampaignID,
		execution.EnrollmentID,
		execution.StepID,
		execution.Status,
		execution.ScheduledAt,
		execution.StartedAt,
		execution.CompletedAt,
		resultJSON,
		execution.ErrorMessage,
		execution.OpenedAt,
		execution.ClickedAt,
		execution.RepliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.CampaignStepExecution, error) {
	query := "SELECT " + executionColumns + " FROM campaign_step_executions WHERE id = $1"

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// DuePending returns pending executions that are due and whose enrollment is
// still active, oldest scheduled first.
func (r *ExecutionRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]*models.CampaignStepExecution, error) {
	query := "SELECT " + qualifyExecutionColumns() + `
		FROM campaign_step_executions x
		JOIN campaign_enrollments e ON e.id = x.enrollment_id
		WHERE x.status = 'pending'
		  AND x.scheduled_at <= $1
		  AND e.status = 'active'
		ORDER BY x.scheduled_at, x.id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.CampaignStepExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// Claim atomically moves a pending execution to running. The conditional
// UPDATE is the claim: whichever poller flips the row first wins, everyone
// else sees zero affected rows.
func (r *ExecutionRepository) Claim(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE campaign_step_executions
		SET status = 'running', started_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, startedAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}

	return affected == 1, nil
}

// CancelPending marks the enrollment's pending executions skipped.
func (r *ExecutionRepository) CancelPending(ctx context.Context, enrollmentID string) error {
	query := `
		UPDATE campaign_step_executions
		SET status = 'skipped'
		WHERE enrollment_id = $1 AND status = 'pending'
	`

	_, err := r.db.ExecContext(ctx, query, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to cancel pending executions: %w", err)
	}

	return nil
}

func qualifyExecutionColumns() string {
	return `
		x.id
	  , x.tenant_id
	  , x.campaign_id
	  , x.enrollment_id
	  , x.step_id
	  , x.status
	  , x.scheduled_at
	  , x.started_at
	  , x.completed_at
	  , x.result
	  , x.error_message
	  , x.opened_at
	  , x.clicked_at
	  , x.replied_at
	`
}

func scanExecution(row rowScanner) (*models.CampaignStepExecution, error) {
	var (
		execution  models.CampaignStepExecution
		resultJSON []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.TenantID,
		&execution.CampaignID,
		&execution.EnrollmentID,
		&execution.StepID,
		&execution.Status,
		&execution.ScheduledAt,
		&execution.StartedAt,
		&execution.CompletedAt,
		&resultJSON,
		&execution.ErrorMessage,
		&execution.OpenedAt,
		&execution.ClickedAt,
		&execution.RepliedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONColumn(resultJSON, &execution.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution result: %w", err)
	}

	return &execution, nil
}
