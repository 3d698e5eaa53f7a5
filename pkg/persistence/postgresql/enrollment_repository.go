package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
)

const uniqueViolation = "23505"

// EnrollmentRepository handles enrollment database operations.
type EnrollmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sql.DB, logger *slog.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, logger: logger}
}

const enrollmentColumns = `
	id
  , tenant_id
  , campaign_id
  , contact_id
  , deal_id
  , status
  , source
  , current_step_id
  , current_step_order
  , steps_completed
  , steps_failed
  , emails_sent
  , sms_sent
  , goal_achieved
  , exit_reason
  , metadata
  , enrolled_at
  , last_step_executed_at
  , next_step_scheduled_at
  , completed_at
  , exited_at
`

// Create inserts a new enrollment. The partial unique index on live
// enrollments turns a duplicate insert into ErrEnrollmentExists.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	metadataJSON, err := json.Marshal(enrollment.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollment metadata: %w", err)
	}

	query := `
		INSERT INTO campaign_enrollments (id, tenant_id, campaign_id,
			contact_id, deal_id, status, source, current_step_id,
			current_step_order, steps_completed, steps_failed, emails_sent,
			sms_sent, goal_achieved, exit_reason, metadata, enrolled_at,
			last_step_executed_at, next_step_scheduled_at, completed_at, exited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)
	`

	_, err = r.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.TenantID,
		enrollment.CampaignID,
		enrollment.ContactID,
		nullString(enrollment.DealID),
		enrollment.Status,
		enrollment.Source,
		nullString(enrollment.CurrentStepID),
		enrollment.CurrentStepOrder,
		enrollment.StepsCompleted,
		enrollment.StepsFailed,
		enrollment.EmailsSent,
		enrollment.SMSSent,
		enrollment.GoalAchieved,
		enrollment.ExitReason,
		metadataJSON,
		enrollment.EnrolledAt,
		enrollment.LastStepExecutedAt,
		enrollment.NextStepScheduledAt,
		enrollment.CompletedAt,
		enrollment.ExitedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &persistence.EnrollmentError{
				Op:           "Create",
				EnrollmentID: enrollment.ID,
				Err:          persistence.ErrEnrollmentExists,
			}
		}

		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// Save upserts an enrollment.
func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	metadataJSON, err := json.Marshal(enrollment.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollment metadata: %w", err)
	}

	query := `
		INSERT INTO campaign_enrollments (id, tenant_id, campaign_id,
			contact_id, deal_id, status, source, current_step_id,
			current_step_order, steps_completed, steps_failed, emails_sent,
			sms_sent, goal_achieved, exit_reason, metadata, enrolled_at,
			last_step_executed_at, next_step_scheduled_at, completed_at, exited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_step_id = EXCLUDED.current_step_id,
			current_step_order = EXCLUDED.current_step_order,
			steps_completed = EXCLUDED.steps_completed,
			steps_failed = EXCLUDED.steps_failed,
			emails_sent = EXCLUDED.emails_sent,
			sms_sent = EXCLUDED.sms_sent,
			goal_achieved = EXCLUDED.goal_achieved,
			exit_reason = EXCLUDED.exit_reason,
			metadata = EXCLUDED.metadata,
			last_step_executed_at = EXCLUDED.last_step_executed_at,
			next_step_scheduled_at = EXCLUDED.next_step_scheduled_at,
			completed_at = EXCLUDED.completed_at,
			exited_at = EXCLUDED.exited_at
	`

	_, err = r.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.TenantID,
		enrollment.CampaignID,
		enrollment.ContactID,
		nullString(enrollment.DealID),
		enrollment.Status,
		enrollment.Source,
		nullString(enrollment.CurrentStepID),
		enrollment.CurrentStepOrder,
		enrollment.StepsCompleted,
		enrollment.StepsFailed,
		enrollment.EmailsSent,
		enrollment.SMSSent,
		enrollment.GoalAchieved,
		enrollment.ExitReason,
		metadataJSON,
		enrollment.EnrolledAt,
		enrollment.LastStepExecutedAt,
		enrollment.NextStepScheduledAt,
		enrollment.CompletedAt,
		enrollment.ExitedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

// GetByID returns an enrollment by its ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.CampaignEnrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM campaign_enrollments WHERE id = $1"

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEnrollmentNotFound
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

// Active returns the live (active or paused) enrollment for the pair.
func (r *EnrollmentRepository) Active(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error) {
	query := "SELECT " + enrollmentColumns + `
		FROM campaign_enrollments
		WHERE campaign_id = $1 AND contact_id = $2 AND status IN ('active', 'paused')
	`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, campaignID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEnrollmentNotFound
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

// ActiveByContact returns the contact's active enrollments across campaigns.
func (r *EnrollmentRepository) ActiveByContact(ctx context.Context, tenantID, contactID string) ([]*models.CampaignEnrollment, error) {
	query := "SELECT " + enrollmentColumns + `
		FROM campaign_enrollments
		WHERE tenant_id = $1 AND contact_id = $2 AND status = 'active'
		ORDER BY enrolled_at
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active enrollments: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	enrollments := make([]*models.CampaignEnrollment, 0)

	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollments = append(enrollments, enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

// LatestEnded returns the most recently finished enrollment for the pair.
func (r *EnrollmentRepository) LatestEnded(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error) {
	query := "SELECT " + enrollmentColumns + `
		FROM campaign_enrollments
		WHERE campaign_id = $1 AND contact_id = $2
		  AND status NOT IN ('active', 'paused')
		ORDER BY COALESCE(completed_at, exited_at, enrolled_at) DESC
		LIMIT 1
	`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, campaignID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEnrollmentNotFound
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

// CountsByStatus returns the tenant-wide enrollment count per status.
func (r *EnrollmentRepository) CountsByStatus(ctx context.Context, tenantID string) (map[models.EnrollmentStatus]int64, error) {
	query := `
		SELECT status, COUNT(*)
		FROM campaign_enrollments
		WHERE tenant_id = $1
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment counts: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	counts := make(map[models.EnrollmentStatus]int64)

	for rows.Next() {
		var (
			status models.EnrollmentStatus
			count  int64
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment count: %w", err)
		}

		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollment counts: %w", err)
	}

	return counts, nil
}

func scanEnrollment(row rowScanner) (*models.CampaignEnrollment, error) {
	var (
		enrollment    models.CampaignEnrollment
		dealID        sql.NullString
		currentStepID sql.NullString
		metadataJSON  []byte
	)

	err := row.Scan(
		&enrollment.ID,
		&enrollment.TenantID,
		&enrollment.CampaignID,
		&enrollment.ContactID,
		&dealID,
		&enrollment.Status,
		&enrollment.Source,
		&currentStepID,
		&enrollment.CurrentStepOrder,
		&enrollment.StepsCompleted,
		&enrollment.StepsFailed,
		&enrollment.EmailsSent,
		&enrollment.SMSSent,
		&enrollment.GoalAchieved,
		&enrollment.ExitReason,
		&metadataJSON,
		&enrollment.EnrolledAt,
		&enrollment.LastStepExecutedAt,
		&enrollment.NextStepScheduledAt,
		&enrollment.CompletedAt,
		&enrollment.ExitedAt,
	)
	if err != nil {
		return nil, err
	}

	enrollment.DealID = dealID.String
	enrollment.CurrentStepID = currentStepID.String

	if err := unmarshalJSONColumn(metadataJSON, &enrollment.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrollment metadata: %w", err)
	}

	return &enrollment, nil
}
