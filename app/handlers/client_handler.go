package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
)

// ClientHandlerInterface defines the contract for client handlers
type ClientHandlerInterface interface {
	AddClient(c fiber.Ctx) error
	ListClients(c fiber.Ctx) error
	SelectClient(c fiber.Ctx) error
	DeleteClient(c fiber.Ctx) error
}

// ClientHandler handles client-related HTTP requests
type ClientHandler struct {
	baseHandler
	clientFlow businessflow.ClientFlow
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientFlow businessflow.ClientFlow) *ClientHandler {
	return &ClientHandler{
		baseHandler: newBaseHandler(),
		clientFlow:  clientFlow,
	}
}

// AddClient registers a new tracked brand
func (h *ClientHandler) AddClient(c fiber.Ctx) error {
	var req dto.AddClientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if handled, err := h.validateStruct(c, &req); handled {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients")
	defer cancel()

	result, err := h.clientFlow.AddClient(ctx, &req)
	if err != nil {
		log.Println("Client creation failed", err)
		return h.businessErrorResponse(c, err, "Client creation failed", "CLIENT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Client created successfully", result)
}

// ListClients returns all tracked brands
func (h *ClientHandler) ListClients(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/clients")
	defer cancel()

	result, err := h.clientFlow.ListClients(ctx)
	if err != nil {
		log.Println("Client listing failed", err)
		return h.businessErrorResponse(c, err, "Client listing failed", "CLIENT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Clients retrieved successfully", result)
}

// SelectClient makes the given client the current one
func (h *ClientHandler) SelectClient(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:id/select")
	defer cancel()

	if err := h.clientFlow.SelectClient(ctx, clientID); err != nil {
		log.Println("Client selection failed", err)
		return h.businessErrorResponse(c, err, "Client selection failed", "CLIENT_SELECT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Client selected successfully", nil)
}

// DeleteClient removes a tracked brand
func (h *ClientHandler) DeleteClient(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:id")
	defer cancel()

	result, err := h.clientFlow.DeleteClient(ctx, clientID)
	if err != nil {
		log.Println("Client deletion failed", err)
		return h.businessErrorResponse(c, err, "Client deletion failed", "CLIENT_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Client deleted successfully", result)
}
