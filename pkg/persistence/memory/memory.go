// Package memory provides an in-memory persistence implementation used by
// tests and local development. All reads and writes copy, so callers never
// share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence implements persistence.Persistence over mutex-guarded maps.
type Persistence struct {
	mu sync.Mutex

	campaigns   map[string]*models.Campaign
	enrollments map[string]*models.CampaignEnrollment
	executions  map[string]*models.CampaignStepExecution
	contacts    map[string]*models.Contact
	deals       map[string]*models.Deal
	tasks       map[string]*models.ContactTask
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		campaigns:   make(map[string]*models.Campaign),
		enrollments: make(map[string]*models.CampaignEnrollment),
		executions:  make(map[string]*models.CampaignStepExecution),
		contacts:    make(map[string]*models.Contact),
		deals:       make(map[string]*models.Deal),
		tasks:       make(map[string]*models.ContactTask),
	}
}

func (p *Persistence) SaveCampaign(ctx context.Context, campaign *models.Campaign) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.campaigns[campaign.ID] = cloneCampaign(campaign)

	return nil
}

func (p *Persistence) CampaignByID(ctx context.Context, id string) (*models.Campaign, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns[id]
	if !ok || campaign.DeletedAt != nil {
		return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
	}

	return cloneCampaign(campaign), nil
}

func (p *Persistence) DeleteCampaign(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns[id]
	if !ok {
		return persistence.NewCampaignError("Delete", id, persistence.ErrCampaignNotFound)
	}

	now := time.Now().UTC()
	campaign.DeletedAt = &now

	return nil
}

func (p *Persistence) ActiveStageTriggers(ctx context.Context, tenantID string) ([]*models.CampaignTrigger, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var triggers []*models.CampaignTrigger

	for _, campaign := range p.campaigns {
		if campaign.TenantID != tenantID || !campaign.IsActive() {
			continue
		}

		for _, trigger := range campaign.Triggers {
			if trigger.Active && trigger.Kind == models.TriggerKindStageChange {
				triggers = append(triggers, cloneTrigger(trigger))
			}
		}
	}

	sort.Slice(triggers, func(i, j int) bool {
		if triggers[i].Priority != triggers[j].Priority {
			return triggers[i].Priority > triggers[j].Priority
		}

		return triggers[i].ID < triggers[j].ID
	})

	return triggers, nil
}

func (p *Persistence) TriggersByCampaign(ctx context.Context, campaignID string) ([]*models.CampaignTrigger, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns[campaignID]
	if !ok {
		return nil, persistence.NewCampaignError("Triggers", campaignID, persistence.ErrCampaignNotFound)
	}

	triggers := make([]*models.CampaignTrigger, 0, len(campaign.Triggers))
	for _, trigger := range campaign.Triggers {
		triggers = append(triggers, cloneTrigger(trigger))
	}

	return triggers, nil
}

func (p *Persistence) IncrementCampaignCounters(ctx context.Context, campaignID string, delta persistence.CounterDelta) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns[campaignID]
	if !ok {
		return persistence.NewCampaignError("IncrementCounters", campaignID, persistence.ErrCampaignNotFound)
	}

	campaign.EnrolledCount += delta.Enrolled
	campaign.CompletedCount += delta.Completed
	campaign.Revenue += delta.Revenue

	return nil
}

func (p *Persistence) IncrementStepCounters(ctx context.Context, stepID string, delta persistence.StepCounterDelta) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, campaign := range p.campaigns {
		for _, step := range campaign.Steps {
			if step.ID == stepID {
				step.ExecutedCount += delta.Executed
				step.SucceededCount += delta.Succeeded
				step.FailedCount += delta.Failed

				return nil
			}
		}
	}

	return persistence.ErrCampaignNotFound
}

func (p *Persistence) CampaignPerformanceByTenant(ctx context.Context, tenantID string) ([]*persistence.CampaignPerformance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byCampaign := make(map[string]*persistence.CampaignPerformance)

	for _, campaign := range p.campaigns {
		if campaign.TenantID != tenantID || campaign.DeletedAt != nil {
			continue
		}

		byCampaign[campaign.ID] = &persistence.CampaignPerformance{
			CampaignID:     campaign.ID,
			Name:           campaign.Name,
			Status:         string(campaign.Status),
			EnrolledCount:  campaign.EnrolledCount,
			CompletedCount: campaign.CompletedCount,
			Revenue:        campaign.Revenue,
		}
	}

	for _, enrollment := range p.enrollments {
		row, ok := byCampaign[enrollment.CampaignID]
		if !ok {
			continue
		}

		switch enrollment.Status {
		case models.EnrollmentStatusActive, models.EnrollmentStatusPaused:
			row.ActiveCount++
		case models.EnrollmentStatusExited:
			row.ExitedCount++
		}
	}

	result := make([]*persistence.CampaignPerformance, 0, len(byCampaign))
	for _, row := range byCampaign {
		result = append(result, row)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CampaignID < result[j].CampaignID })

	return result, nil
}

func (p *Persistence) EnrollmentCountsByStatus(ctx context.Context, tenantID string) (map[models.EnrollmentStatus]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[models.EnrollmentStatus]int64)

	for _, enrollment := range p.enrollments {
		if enrollment.TenantID == tenantID {
			counts[enrollment.Status]++
		}
	}

	return counts, nil
}

func (p *Persistence) CreateEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.enrollments {
		if existing.CampaignID == enrollment.CampaignID &&
			existing.ContactID == enrollment.ContactID &&
			existing.InProgress() {
			return &persistence.EnrollmentError{
				Op:           "Create",
				EnrollmentID: existing.ID,
				Err:          persistence.ErrEnrollmentExists,
			}
		}
	}

	p.enrollments[enrollment.ID] = cloneEnrollment(enrollment)

	return nil
}

func (p *Persistence) SaveEnrollment(ctx context.Context, enrollment *models.CampaignEnrollment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enrollments[enrollment.ID] = cloneEnrollment(enrollment)

	return nil
}

func (p *Persistence) EnrollmentByID(ctx context.Context, id string) (*models.CampaignEnrollment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	enrollment, ok := p.enrollments[id]
	if !ok {
		return nil, persistence.ErrEnrollmentNotFound
	}

	return cloneEnrollment(enrollment), nil
}

func (p *Persistence) ActiveEnrollment(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, enrollment := range p.enrollments {
		if enrollment.CampaignID == campaignID &&
			enrollment.ContactID == contactID &&
			enrollment.InProgress() {
			return cloneEnrollment(enrollment), nil
		}
	}

	return nil, persistence.ErrEnrollmentNotFound
}

func (p *Persistence) ActiveEnrollmentsByContact(ctx context.Context, tenantID, contactID string) ([]*models.CampaignEnrollment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result []*models.CampaignEnrollment

	for _, enrollment := range p.enrollments {
		if enrollment.TenantID == tenantID &&
			enrollment.ContactID == contactID &&
			enrollment.Status == models.EnrollmentStatusActive {
			result = append(result, cloneEnrollment(enrollment))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (p *Persistence) LatestEndedEnrollment(ctx context.Context, campaignID, contactID string) (*models.CampaignEnrollment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var latest *models.CampaignEnrollment

	for _, enrollment := range p.enrollments {
		if enrollment.CampaignID != campaignID ||
			enrollment.ContactID != contactID ||
			enrollment.InProgress() {
			continue
		}

		endedAt := enrollmentEndedAt(enrollment)
		if latest == nil || endedAt.After(enrollmentEndedAt(latest)) {
			latest = enrollment
		}
	}

	if latest == nil {
		return nil, persistence.ErrEnrollmentNotFound
	}

	return cloneEnrollment(latest), nil
}

func enrollmentEndedAt(e *models.CampaignEnrollment) time.Time {
	if e.CompletedAt != nil {
		return *e.CompletedAt
	}

	if e.ExitedAt != nil {
		return *e.ExitedAt
	}

	return e.EnrolledAt
}

func (p *Persistence) SaveExecution(ctx context.Context, execution *models.CampaignStepExecution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.executions[execution.ID] = cloneExecution(execution)

	return nil
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.CampaignStepExecution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	execution, ok := p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return cloneExecution(execution), nil
}

func (p *Persistence) DuePendingExecutions(ctx context.Context, now time.Time, limit int) ([]*models.CampaignStepExecution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var due []*models.CampaignStepExecution

	for _, execution := range p.executions {
		if !execution.Due(now) {
			continue
		}

		enrollment, ok := p.enrollments[execution.EnrollmentID]
		if !ok || enrollment.Status != models.EnrollmentStatusActive {
			continue
		}

		due = append(due, cloneExecution(execution))
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(due[j].ScheduledAt)
		}

		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (p *Persistence) ClaimExecution(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	execution, ok := p.executions[id]
	if !ok {
		return false, persistence.ErrExecutionNotFound
	}

	if execution.Status != models.ExecutionStatusPending {
		return false, nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &startedAt

	return true, nil
}

func (p *Persistence) CancelPendingExecutions(ctx context.Context, enrollmentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, execution := range p.executions {
		if execution.EnrollmentID == enrollmentID && execution.Status == models.ExecutionStatusPending {
			execution.Status = models.ExecutionStatusSkipped
		}
	}

	return nil
}

func (p *Persistence) SaveContact(ctx context.Context, contact *models.Contact) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.contacts[contact.ID] = cloneContact(contact)

	return nil
}

func (p *Persistence) ContactByID(ctx context.Context, tenantID, id string) (*models.Contact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	contact, ok := p.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return nil, persistence.ErrContactNotFound
	}

	return cloneContact(contact), nil
}

func (p *Persistence) SaveDeal(ctx context.Context, deal *models.Deal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.deals[deal.ID] = cloneDeal(deal)

	return nil
}

func (p *Persistence) DealByID(ctx context.Context, tenantID, id string) (*models.Deal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	deal, ok := p.deals[id]
	if !ok || deal.TenantID != tenantID {
		return nil, persistence.ErrDealNotFound
	}

	return cloneDeal(deal), nil
}

func (p *Persistence) SaveTask(ctx context.Context, task *models.ContactTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()

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

	p.tasks[task.ID] = cloneTask(task)

	return nil
}

// Tasks returns all saved tasks; test helper.
func (p *Persistence) Tasks() []*models.ContactTask {
	p.mu.Lock()
	defer p.mu.Unlock()

	tasks := make([]*models.ContactTask, 0, len(p.tasks))
	for _, task := range p.tasks {
		tasks = append(tasks, cloneTask(task))
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return tasks
}

// ExecutionsByEnrollment returns all executions for an enrollment, oldest
// scheduled first; test helper.
func (p *Persistence) ExecutionsByEnrollment(enrollmentID string) []*models.CampaignStepExecution {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result []*models.CampaignStepExecution

	for _, execution := range p.executions {
		if execution.EnrollmentID == enrollmentID {
			result = append(result, cloneExecution(execution))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScheduledAt.Equal(result[j].ScheduledAt) {
			return result[i].ScheduledAt.Before(result[j].ScheduledAt)
		}

		return result[i].ID < result[j].ID
	})

	return result
}

func (p *Persistence) HealthCheck(ctx context.Context) error { return nil }

func (p *Persistence) Close(ctx context.Context) error { return nil }
