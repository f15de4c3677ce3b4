package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
)

// PromptHandlerInterface defines the contract for prompt handlers
type PromptHandlerInterface interface {
	AddPrompt(c fiber.Ctx) error
	AddManyPrompts(c fiber.Ctx) error
	ListPrompts(c fiber.Ctx) error
	DeactivatePrompt(c fiber.Ctx) error
	ReactivatePrompt(c fiber.Ctx) error
	ClearPrompts(c fiber.Ctx) error
}

// PromptHandler handles prompt-registry HTTP requests
type PromptHandler struct {
	baseHandler
	promptFlow businessflow.PromptFlow
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(promptFlow businessflow.PromptFlow) *PromptHandler {
	return &PromptHandler{
		baseHandler: newBaseHandler(),
		promptFlow:  promptFlow,
	}
}

// AddPrompt registers a single prompt for the client
func (h *PromptHandler) AddPrompt(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	var req dto.AddPromptRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validateStruct(c, &req); handled {
		return err
	}
	req.ClientID = clientID

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/prompts")
	defer cancel()

	result, err := h.promptFlow.AddPrompt(ctx, &req)
	if err != nil {
		log.Println("Prompt creation failed", err)
		return h.businessErrorResponse(c, err, "Prompt creation failed", "PROMPT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Prompt created successfully", result)
}

// AddManyPrompts registers a batch of prompts for the client
func (h *PromptHandler) AddManyPrompts(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	var req dto.AddManyPromptsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validateStruct(c, &req); handled {
		return err
	}
	req.ClientID = clientID

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/prompts/batch")
	defer cancel()

	result, err := h.promptFlow.AddMany(ctx, &req)
	if err != nil {
		log.Println("Prompt batch creation failed", err)
		return h.businessErrorResponse(c, err, "Prompt batch creation failed", "PROMPT_BATCH_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Prompts created successfully", result)
}

// ListPrompts returns the client's full prompt registry
func (h *PromptHandler) ListPrompts(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/prompts")
	defer cancel()

	result, err := h.promptFlow.ListPrompts(ctx, clientID)
	if err != nil {
		log.Println("Prompt listing failed", err)
		return h.businessErrorResponse(c, err, "Prompt listing failed", "PROMPT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Prompts retrieved successfully", result)
}

// DeactivatePrompt soft-deletes a prompt
func (h *PromptHandler) DeactivatePrompt(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}
	promptID, err := parseUintParam(c, "promptId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid prompt id", "INVALID_PROMPT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/prompts/:promptId")
	defer cancel()

	if err := h.promptFlow.Deactivate(ctx, clientID, promptID); err != nil {
		log.Println("Prompt deactivation failed", err)
		return h.businessErrorResponse(c, err, "Prompt deactivation failed", "PROMPT_DEACTIVATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Prompt deactivated successfully", nil)
}

// ReactivatePrompt restores a soft-deleted prompt
func (h *PromptHandler) ReactivatePrompt(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}
	promptID, err := parseUintParam(c, "promptId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid prompt id", "INVALID_PROMPT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/prompts/:promptId/reactivate")
	defer cancel()

	if err := h.promptFlow.Reactivate(ctx, clientID, promptID); err != nil {
		log.Println("Prompt reactivation failed", err)
		return h.businessErrorResponse(c, err, "Prompt reactivation failed", "PROMPT_REACTIVATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Prompt reactivated successfully", nil)
}

// ClearPrompts resets the client's prompt working set
func (h *PromptHandler) ClearPrompts(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/prompts")
	defer cancel()

	result, err := h.promptFlow.ClearAll(ctx, clientID)
	if err != nil {
		log.Println("Prompt clearing failed", err)
		return h.businessErrorResponse(c, err, "Prompt clearing failed", "PROMPT_CLEAR_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Prompts cleared successfully", result)
}
