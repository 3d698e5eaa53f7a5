package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/evercrm/cadence/pkg/campaign"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence/memory"
	"github.com/evercrm/cadence/pkg/registry"
	"github.com/evercrm/cadence/pkg/services"
	"github.com/evercrm/cadence/pkg/steps"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	app   *fiber.App
	store *memory.Persistence
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewPersistence()

	reg := registry.NewRegistry(logger)
	steps.RegisterDefaults(reg, store, steps.Senders{})

	campaignService := services.NewCampaignService(store, reg, logger)
	enroller := campaign.NewEnroller(store, nil, nil, logger)
	matcher := campaign.NewTriggerMatcher(store, enroller, nil, logger)

	handlers := NewAPIHandlers(campaignService, enroller, matcher, validator.New())

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Post("/campaigns", handlers.CreateCampaign)
	app.Get("/campaigns/:id", handlers.GetCampaign)
	app.Post("/campaigns/:id/activate", handlers.ActivateCampaign)
	app.Post("/campaigns/:id/pause", handlers.PauseCampaign)
	app.Post("/campaigns/:id/archive", handlers.ArchiveCampaign)
	app.Delete("/campaigns/:id", handlers.DeleteCampaign)
	app.Post("/campaigns/:id/enrollments", handlers.EnrollContact)
	app.Post("/events/stage-change", handlers.StageChange)
	app.Get("/reports/campaign-performance", handlers.CampaignPerformance)
	app.Get("/reports/enrollment-counts", handlers.EnrollmentCounts)

	return &apiFixture{app: app, store: store}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeCampaign(t *testing.T, resp *http.Response) models.Campaign {
	t.Helper()

	var result models.Campaign
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	return result
}

func campaignRequestBody() map[string]any {
	return map[string]any{
		"tenant_id": "t1",
		"name":      "Trial Nurture",
		"triggers": []map[string]any{
			{"kind": "stage_change", "config": map[string]any{"to_stage": "trial"}, "active": true},
		},
		"steps": []map[string]any{
			{"step_order": 1, "kind": "send_email", "config": map[string]any{"subject": "Day 1"}},
			{"step_order": 2, "kind": "wait", "delay_value": 3, "delay_unit": "days"},
		},
	}
}

func TestCreateCampaignEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/campaigns", campaignRequestBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeCampaign(t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.CampaignStatusDraft, created.Status)
	assert.Len(t, created.Steps, 2)
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newAPIFixture(t)

	body := campaignRequestBody()
	delete(body, "tenant_id")

	resp := f.request(t, http.MethodPost, "/campaigns", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body = campaignRequestBody()
	body["name"] = "ab"

	resp = f.request(t, http.MethodPost, "/campaigns", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCampaignLifecycleEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	created := decodeCampaign(t, f.request(t, http.MethodPost, "/campaigns", campaignRequestBody()))
	base := "/campaigns/" + created.ID

	resp := f.request(t, http.MethodPost, base+"/activate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.CampaignStatusActive, decodeCampaign(t, resp).Status)

	// Activating twice is a state conflict.
	resp = f.request(t, http.MethodPost, base+"/activate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.request(t, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodPost, base+"/archive", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetCampaignNotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/campaigns/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEnrollContactEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	created := decodeCampaign(t, f.request(t, http.MethodPost, "/campaigns", campaignRequestBody()))
	f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/activate", nil)

	require.NoError(t, f.store.SaveContact(ctx, &models.Contact{ID: "c1", TenantID: "t1"}))

	body := map[string]any{"tenant_id": "t1", "contact_id": "c1"}
	path := fmt.Sprintf("/campaigns/%s/enrollments", created.ID)

	resp := f.request(t, http.MethodPost, path, body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var first models.CampaignEnrollment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.Equal(t, models.EnrollmentStatusActive, first.Status)
	assert.Equal(t, models.EnrollmentSourceAPI, first.Source)

	// Re-enrolling while the first enrollment is live returns it with 200.
	resp = f.request(t, http.MethodPost, path, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var second models.CampaignEnrollment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	assert.Equal(t, first.ID, second.ID)
}

func TestEnrollContactDraftCampaignConflict(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	created := decodeCampaign(t, f.request(t, http.MethodPost, "/campaigns", campaignRequestBody()))
	require.NoError(t, f.store.SaveContact(ctx, &models.Contact{ID: "c1", TenantID: "t1"}))

	resp := f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/enrollments",
		map[string]any{"tenant_id": "t1", "contact_id": "c1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEnrollContactUnknownContact(t *testing.T) {
	f := newAPIFixture(t)

	created := decodeCampaign(t, f.request(t, http.MethodPost, "/campaigns", campaignRequestBody()))
	f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/activate", nil)

	resp := f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/enrollments",
		map[string]any{"tenant_id": "t1", "contact_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStageChangeEndpointDrivesEnrollment(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	created := decodeCampaign(t, f.request(t, http.MethodPost, "/campaigns", campaignRequestBody()))
	f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/activate", nil)

	require.NoError(t, f.store.SaveContact(ctx, &models.Contact{ID: "c1", TenantID: "t1"}))
	require.NoError(t, f.store.SaveDeal(ctx, &models.Deal{
		ID: "d1", TenantID: "t1", ContactID: "c1", Pipeline: "sales", Stage: "demo",
	}))

	resp := f.request(t, http.MethodPost, "/events/stage-change", map[string]any{
		"tenant_id":  "t1",
		"deal_id":    "d1",
		"pipeline":   "sales",
		"from_stage": "demo",
		"to_stage":   "trial",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	enrollment, err := f.store.ActiveEnrollment(ctx, created.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentSourceAutomatic, enrollment.Source)
}

func TestStageChangeValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/events/stage-change", map[string]any{
		"tenant_id": "t1",
		"deal_id":   "d1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	created := decodeCampaign(t, f.request(t, http.MethodPost, "/campaigns", campaignRequestBody()))
	f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/activate", nil)

	require.NoError(t, f.store.SaveContact(ctx, &models.Contact{ID: "c1", TenantID: "t1"}))
	f.request(t, http.MethodPost, "/campaigns/"+created.ID+"/enrollments",
		map[string]any{"tenant_id": "t1", "contact_id": "c1"})

	resp := f.request(t, http.MethodGet, "/reports/campaign-performance?tenant_id=t1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var performance struct {
		Campaigns []struct {
			CampaignID    string `json:"campaign_id"`
			EnrolledCount int64  `json:"enrolled_count"`
			ActiveCount   int64  `json:"active_count"`
		} `json:"campaigns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&performance))
	require.Len(t, performance.Campaigns, 1)
	assert.Equal(t, created.ID, performance.Campaigns[0].CampaignID)
	assert.Equal(t, int64(1), performance.Campaigns[0].EnrolledCount)
	assert.Equal(t, int64(1), performance.Campaigns[0].ActiveCount)

	resp = f.request(t, http.MethodGet, "/reports/enrollment-counts?tenant_id=t1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var counts struct {
		Enrollments map[string]int64 `json:"enrollments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counts))
	assert.Equal(t, int64(1), counts.Enrollments["active"])

	// tenant_id is mandatory on both report endpoints.
	resp = f.request(t, http.MethodGet, "/reports/campaign-performance", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
