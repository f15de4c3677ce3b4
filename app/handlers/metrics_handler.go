package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
)

// MetricsHandlerInterface defines the contract for metrics handlers
type MetricsHandlerInterface interface {
	Overview(c fiber.Ctx) error
	Summary(c fiber.Ctx) error
	CompetitorGap(c fiber.Ctx) error
	TopSources(c fiber.Ctx) error
	ModelStats(c fiber.Ctx) error
	Insights(c fiber.Ctx) error
}

// MetricsHandler handles aggregate-view HTTP requests
type MetricsHandler struct {
	baseHandler
	metricsFlow businessflow.MetricsFlow
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsFlow businessflow.MetricsFlow) *MetricsHandler {
	return &MetricsHandler{
		baseHandler: newBaseHandler(),
		metricsFlow: metricsFlow,
	}
}

// Overview returns every aggregate view in one response
func (h *MetricsHandler) Overview(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/metrics")
	defer cancel()

	result, err := h.metricsFlow.Overview(ctx, clientID)
	if err != nil {
		log.Println("Metrics overview failed", err)
		return h.businessErrorResponse(c, err, "Metrics overview failed", "METRICS_OVERVIEW_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Metrics retrieved successfully", result)
}

// Summary returns the brand-level visibility summary
func (h *MetricsHandler) Summary(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/metrics/summary")
	defer cancel()

	result, err := h.metricsFlow.Summary(ctx, clientID)
	if err != nil {
		log.Println("Metrics summary failed", err)
		return h.businessErrorResponse(c, err, "Metrics summary failed", "METRICS_SUMMARY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Summary retrieved successfully", result)
}

// CompetitorGap returns the brand-vs-competitor mention table
func (h *MetricsHandler) CompetitorGap(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/metrics/competitor-gap")
	defer cancel()

	result, err := h.metricsFlow.CompetitorGap(ctx, clientID)
	if err != nil {
		log.Println("Competitor gap failed", err)
		return h.businessErrorResponse(c, err, "Competitor gap failed", "METRICS_GAP_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Competitor gap retrieved successfully", result)
}

// TopSources returns the most-cited domains
func (h *MetricsHandler) TopSources(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/metrics/top-sources")
	defer cancel()

	result, err := h.metricsFlow.TopSources(ctx, clientID, limit)
	if err != nil {
		log.Println("Top sources failed", err)
		return h.businessErrorResponse(c, err, "Top sources failed", "METRICS_SOURCES_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Top sources retrieved successfully", result)
}

// ModelStats returns per-provider visibility tallies
func (h *MetricsHandler) ModelStats(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/metrics/model-stats")
	defer cancel()

	result, err := h.metricsFlow.ModelStats(ctx, clientID)
	if err != nil {
		log.Println("Model stats failed", err)
		return h.businessErrorResponse(c, err, "Model stats failed", "METRICS_MODELS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Model stats retrieved successfully", result)
}

// Insights returns the tiered visibility status with recommendations
func (h *MetricsHandler) Insights(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/metrics/insights")
	defer cancel()

	result, err := h.metricsFlow.Insights(ctx, clientID)
	if err != nil {
		log.Println("Insights failed", err)
		return h.businessErrorResponse(c, err, "Insights failed", "METRICS_INSIGHTS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Insights retrieved successfully", result)
}
