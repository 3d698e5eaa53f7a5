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

// ContactRepository handles contact, deal and task database operations.
type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

// SaveContact upserts a contact.
func (r *ContactRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	now := time.Now().UTC()

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now

	tagsJSON, err := json.Marshal(contact.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal contact tags: %w", err)
	}

	fieldsJSON, err := json.Marshal(contact.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal contact fields: %w", err)
	}

	query := `
		INSERT INTO contacts (id, tenant_id, first_name, last_name, email,
			phone, tags, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			tags = EXCLUDED.tags,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		contact.ID,
		contact.TenantID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		tagsJSON,
		fieldsJSON,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

// ContactByID returns a tenant's contact by ID.
func (r *ContactRepository) ContactByID(ctx context.Context, tenantID, id string) (*models.Contact, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , first_name
		  , last_name
		  , email
		  , phone
		  , tags
		  , fields
		  , created_at
		  , updated_at
		FROM contacts
		WHERE id = $1 AND tenant_id = $2
	`

	var (
		contact    models.Contact
		tagsJSON   []byte
		fieldsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&contact.ID,
		&contact.TenantID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.Phone,
		&tagsJSON,
		&fieldsJSON,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrContactNotFound
		}

		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	if err := unmarshalJSONColumn(tagsJSON, &contact.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact tags: %w", err)
	}

	if err := unmarshalJSONColumn(fieldsJSON, &contact.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact fields: %w", err)
	}

	return &contact, nil
}

// SaveDeal upserts a deal.
func (r *ContactRepository) SaveDeal(ctx context.Context, deal *models.Deal) error {
	now := time.Now().UTC()

	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}

	deal.UpdatedAt = now

	fieldsJSON, err := json.Marshal(deal.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal deal fields: %w", err)
	}

	query := `
		INSERT INTO deals (id, tenant_id, contact_id, pipeline, stage, fields,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			pipeline = EXCLUDED.pipeline,
			stage = EXCLUDED.stage,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		deal.ID,
		deal.TenantID,
		nullString(deal.ContactID),
		deal.Pipeline,
		deal.Stage,
		fieldsJSON,
		deal.CreatedAt,
		deal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save deal: %w", err)
	}

	return nil
}

// DealByID returns a tenant's deal by ID.
func (r *ContactRepository) DealByID(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , contact_id
		  , pipeline
		  , stage
		  , fields
		  , created_at
		  , updated_at
		FROM deals
		WHERE id = $1 AND tenant_id = $2
	`

	var (
		deal       models.Deal
		contactID  sql.NullString
		fieldsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&deal.ID,
		&deal.TenantID,
		&contactID,
		&deal.Pipeline,
		&deal.Stage,
		&fieldsJSON,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrDealNotFound
		}

		return nil, fmt.Errorf("failed to scan deal: %w", err)
	}

	deal.ContactID = contactID.String

	if err := unmarshalJSONColumn(fieldsJSON, &deal.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deal fields: %w", err)
	}

	return &deal, nil
}

// SaveTask inserts a follow-up task.
func (r *ContactRepository) SaveTask(ctx context.Context, task *models.ContactTask) error {
	if task.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate task ID: %w", err)
		}

		task.ID = id.String()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO contact_tasks (id, tenant_id, contact_id, assignee_id,
			title, description, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.TenantID,
		task.ContactID,
		nullString(task.AssigneeID),
		task.Title,
		task.Description,
		task.DueAt,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	return nil
}
