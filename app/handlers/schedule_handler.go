package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
)

// ScheduleHandlerInterface defines the contract for schedule handlers
type ScheduleHandlerInterface interface {
	CreateSchedule(c fiber.Ctx) error
	ListSchedules(c fiber.Ctx) error
	ToggleSchedule(c fiber.Ctx) error
	DeleteSchedule(c fiber.Ctx) error
}

// ScheduleHandler handles recurring-audit HTTP requests
type ScheduleHandler struct {
	baseHandler
	scheduleFlow businessflow.ScheduleFlow
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduleFlow businessflow.ScheduleFlow) *ScheduleHandler {
	return &ScheduleHandler{
		baseHandler:  newBaseHandler(),
		scheduleFlow: scheduleFlow,
	}
}

// CreateSchedule registers a recurring audit
func (h *ScheduleHandler) CreateSchedule(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	var req dto.CreateScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validateStruct(c, &req); handled {
		return err
	}
	req.ClientID = clientID

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/schedules")
	defer cancel()

	result, err := h.scheduleFlow.Create(ctx, &req)
	if err != nil {
		log.Println("Schedule creation failed", err)
		return h.businessErrorResponse(c, err, "Schedule creation failed", "SCHEDULE_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Schedule created successfully", result)
}

// ListSchedules returns the client's schedules
func (h *ScheduleHandler) ListSchedules(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/schedules")
	defer cancel()

	result, err := h.scheduleFlow.List(ctx, clientID)
	if err != nil {
		log.Println("Schedule listing failed", err)
		return h.businessErrorResponse(c, err, "Schedule listing failed", "SCHEDULE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Schedules retrieved successfully", result)
}

// ToggleSchedule enables or disables a schedule
func (h *ScheduleHandler) ToggleSchedule(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}
	scheduleID, err := parseUintParam(c, "scheduleId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid schedule id", "INVALID_SCHEDULE_ID", err.Error())
	}

	var req dto.ToggleScheduleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.ScheduleID = scheduleID

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/schedules/:scheduleId")
	defer cancel()

	result, err := h.scheduleFlow.Toggle(ctx, clientID, &req)
	if err != nil {
		log.Println("Schedule toggle failed", err)
		return h.businessErrorResponse(c, err, "Schedule toggle failed", "SCHEDULE_TOGGLE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Schedule updated successfully", result)
}

// DeleteSchedule removes a schedule
func (h *ScheduleHandler) DeleteSchedule(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}
	scheduleID, err := parseUintParam(c, "scheduleId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid schedule id", "INVALID_SCHEDULE_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/schedules/:scheduleId")
	defer cancel()

	if err := h.scheduleFlow.Delete(ctx, clientID, scheduleID); err != nil {
		log.Println("Schedule deletion failed", err)
		return h.businessErrorResponse(c, err, "Schedule deletion failed", "SCHEDULE_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Schedule deleted successfully", nil)
}
