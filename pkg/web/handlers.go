package web

import (
	"net/http"
	"time"

	"github.com/evercrm/cadence/pkg/campaign"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/persistence"
	"github.com/evercrm/cadence/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	campaignService *services.CampaignService
	enroller        *campaign.Enroller
	matcher         *campaign.TriggerMatcher
	validator       *validator.Validate
}

func NewAPIHandlers(
	campaignService *services.CampaignService,
	enroller *campaign.Enroller,
	matcher *campaign.TriggerMatcher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		campaignService: campaignService,
		enroller:        enroller,
		matcher:         matcher,
		validator:       validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.campaignService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.campaignService.Create(c.Context(), req.ToCampaign())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	result, err := h.campaignService.Get(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Campaign not found")
		}

		return internalError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ActivateCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	result, err := h.campaignService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) PauseCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	result, err := h.campaignService.Pause(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ArchiveCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	result, err := h.campaignService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DeleteCampaign(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	err := h.campaignService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// EnrollContact enrolls a single contact into the campaign. Re-enrolling a
// contact with a live enrollment returns the existing enrollment with 200
// instead of creating another.
func (h *APIHandlers) EnrollContact(c fiber.Ctx) error {
	campaignID := c.Params("id")
	if campaignID == "" {
		return badRequest(c, "Campaign ID is required")
	}

	var req EnrollContactRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	source := models.EnrollmentSource(req.Source)
	if source == "" {
		source = models.EnrollmentSourceAPI
	}

	requestedAt := time.Now().UTC()

	enrollment, err := h.enroller.Enroll(c.Context(), campaign.EnrollRequest{
		TenantID:   req.TenantID,
		CampaignID: campaignID,
		ContactID:  req.ContactID,
		DealID:     req.DealID,
		Source:     source,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	// An enrollment older than this request is the pre-existing one.
	status := fiber.StatusCreated
	if enrollment.EnrolledAt.Before(requestedAt) {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(enrollment)
}

// CampaignPerformance returns the tenant's per-campaign reporting aggregate.
func (h *APIHandlers) CampaignPerformance(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	result, err := h.campaignService.Performance(c.Context(), tenantID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"campaigns": result})
}

// EnrollmentCounts returns the tenant's enrollment totals per status.
func (h *APIHandlers) EnrollmentCounts(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	counts, err := h.campaignService.EnrollmentCounts(c.Context(), tenantID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"enrollments": counts})
}

// StageChange ingests a deal stage change and runs trigger matching
// synchronously: exits first, then enrollments.
func (h *APIHandlers) StageChange(c fiber.Ctx) error {
	var req StageChangeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.matcher.HandleStageChange(c.Context(), req.ToEvent())
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}
