package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
)

// Batch runs pace a metered external API, so their request contexts are
// bounded well above the per-call timeout.
const batchRequestTimeout = 30 * time.Minute

// AuditHandlerInterface defines the contract for audit handlers
type AuditHandlerInterface interface {
	RunFull(c fiber.Ctx) error
	RunSingle(c fiber.Ctx) error
	RunCampaign(c fiber.Ctx) error
	CampaignStatus(c fiber.Ctx) error
	ListResults(c fiber.Ctx) error
}

// AuditHandler handles audit orchestration HTTP requests
type AuditHandler struct {
	baseHandler
	auditFlow businessflow.AuditFlow
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditFlow businessflow.AuditFlow) *AuditHandler {
	return &AuditHandler{
		baseHandler: newBaseHandler(),
		auditFlow:   auditFlow,
	}
}

// RunFull audits every active prompt without a live result
func (h *AuditHandler) RunFull(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/clients/:clientId/audits/full", batchRequestTimeout)
	defer cancel()

	result, err := h.auditFlow.RunFull(ctx, clientID)
	if err != nil {
		log.Println("Full audit run failed", err)
		return h.businessErrorResponse(c, err, "Full audit run failed", "AUDIT_RUN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Full audit run completed", result)
}

// RunSingle runs or re-runs exactly one prompt
func (h *AuditHandler) RunSingle(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	var req dto.RunSingleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validateStruct(c, &req); handled {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/clients/:clientId/audits/single", 3*time.Minute)
	defer cancel()

	result, err := h.auditFlow.RunSingle(ctx, clientID, req.PromptID)
	if err != nil {
		log.Println("Single audit run failed", err)
		return h.businessErrorResponse(c, err, "Single audit run failed", "AUDIT_RUN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audit completed", result)
}

// RunCampaign runs a named campaign batch
func (h *AuditHandler) RunCampaign(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	var req dto.RunCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validateStruct(c, &req); handled {
		return err
	}
	req.ClientID = clientID

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/clients/:clientId/campaigns", batchRequestTimeout)
	defer cancel()

	result, err := h.auditFlow.RunCampaign(ctx, &req)
	if err != nil {
		log.Println("Campaign run failed", err)
		return h.businessErrorResponse(c, err, "Campaign run failed", "CAMPAIGN_RUN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign completed", result)
}

// CampaignStatus reports derived campaign progress
func (h *AuditHandler) CampaignStatus(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign uuid is required", "INVALID_CAMPAIGN_UUID", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/campaigns/:uuid")
	defer cancel()

	result, err := h.auditFlow.CampaignStatus(ctx, campaignUUID)
	if err != nil {
		log.Println("Campaign status lookup failed", err)
		return h.businessErrorResponse(c, err, "Campaign status lookup failed", "CAMPAIGN_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign status retrieved", result)
}

// ListResults returns the client's stored audit results
func (h *AuditHandler) ListResults(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/results")
	defer cancel()

	result, err := h.auditFlow.ListResults(ctx, clientID)
	if err != nil {
		log.Println("Result listing failed", err)
		return h.businessErrorResponse(c, err, "Result listing failed", "RESULT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Results retrieved successfully", result)
}
