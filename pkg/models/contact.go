package models

import "time"

// Contact is a tenant-scoped person record. Fields holds the free-form CRM
// attributes that steps may read for templating or write via update_field.
type Contact struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id" validate:"required"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"     validate:"omitempty,email"`
	Phone     string         `json:"phone"`
	Tags      []string       `json:"tags,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AddTags appends the given tags, skipping any the contact already carries.
func (c *Contact) AddTags(tags []string) {
	existing := make(map[string]struct{}, len(c.Tags))
	for _, tag := range c.Tags {
		existing[tag] = struct{}{}
	}

	for _, tag := range tags {
		if _, ok := existing[tag]; ok {
			continue
		}

		existing[tag] = struct{}{}
		c.Tags = append(c.Tags, tag)
	}
}

// RemoveTags removes the given tags when present.
func (c *Contact) RemoveTags(tags []string) {
	drop := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		drop[tag] = struct{}{}
	}

	kept := c.Tags[:0]

	for _, tag := range c.Tags {
		if _, ok := drop[tag]; !ok {
			kept = append(kept, tag)
		}
	}

	c.Tags = kept
}

// Deal is a pipeline-tracked entity linked to a contact. Stage transitions
// on deals are the events that drive stage_change triggers.
type Deal struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id" validate:"required"`
	ContactID string         `json:"contact_id"`
	Pipeline  string         `json:"pipeline"`
	Stage     string         `json:"stage"`
	Fields    map[string]any `json:"fields,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ContactTask is a follow-up task created by create_task and exit_campaign
// steps.
type ContactTask struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ContactID   string     `json:"contact_id"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StageChangeEvent is the inbound notification that a tracked deal moved
// from one pipeline stage to another.
type StageChangeEvent struct {
	TenantID  string    `json:"tenant_id"  validate:"required"`
	DealID    string    `json:"deal_id"    validate:"required"`
	ContactID string    `json:"contact_id"`
	Pipeline  string    `json:"pipeline"`
	FromStage string    `json:"from_stage"`
	ToStage   string    `json:"to_stage"   validate:"required"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}
