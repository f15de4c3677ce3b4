// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
	"github.com/kagemusha-ai/kagemusha/utils"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// baseHandler carries the pieces every handler shares
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: validator.New()}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validateStruct runs the request through the validator and renders the
// error response itself; a nil return with handled=true means the response
// was already written
func (h *baseHandler) validateStruct(c fiber.Ctx, req any) (handled bool, err error) {
	if vErr := h.validator.Struct(req); vErr != nil {
		var validationErrors []string
		var fieldErrors validator.ValidationErrors
		if errors.As(vErr, &fieldErrors) {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, getValidationErrorMessage(fe))
			}
		}
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return false, nil
}

// createRequestContext creates a bounded context with request-scoped values
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)

	return ctx, cancel
}

// parseUintParam parses a positive integer route parameter
func parseUintParam(c fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return uint(v), nil
}

// businessErrorResponse maps a business error onto the right HTTP status
func (h *baseHandler) businessErrorResponse(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, businessflow.ErrClientNotFound),
			errors.Is(err, businessflow.ErrPromptNotFound),
			errors.Is(err, businessflow.ErrCampaignNotFound),
			errors.Is(err, businessflow.ErrScheduleNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, businessflow.ErrPromptAccessDenied):
			status = fiber.StatusForbidden
		case errors.Is(err, businessflow.ErrBrandNameRequired),
			errors.Is(err, businessflow.ErrPromptTextRequired),
			errors.Is(err, businessflow.ErrCampaignNameRequired),
			errors.Is(err, businessflow.ErrCampaignEmptyBatch),
			errors.Is(err, businessflow.ErrScheduleNameRequired),
			errors.Is(err, businessflow.ErrScheduleIntervalInvalid):
			status = fiber.StatusBadRequest
		case errors.Is(err, businessflow.ErrLastClientUndeletable),
			errors.Is(err, businessflow.ErrNoActivePrompts):
			status = fiber.StatusConflict
		case errors.Is(err, businessflow.ErrScoringUnavailable):
			status = fiber.StatusBadGateway
		}
		return h.ErrorResponse(c, status, bizErr.Message, bizErr.Code, nil)
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
