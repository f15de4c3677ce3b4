package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	businessflow "github.com/kagemusha-ai/kagemusha/business_flow"
)

// ExportHandlerInterface defines the contract for export handlers
type ExportHandlerInterface interface {
	Export(c fiber.Ctx) error
}

// ExportHandler handles audit export downloads
type ExportHandler struct {
	baseHandler
	exportFlow businessflow.ExportFlow
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportFlow businessflow.ExportFlow) *ExportHandler {
	return &ExportHandler{
		baseHandler: newBaseHandler(),
		exportFlow:  exportFlow,
	}
}

// Export renders the client's in-scope results in the requested format.
// Supported formats: csv (default), json, xlsx, report.
func (h *ExportHandler) Export(c fiber.Ctx) error {
	clientID, err := parseUintParam(c, "clientId")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid client id", "INVALID_CLIENT_ID", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:clientId/export")
	defer cancel()

	var (
		filename    string
		payload     []byte
		contentType string
	)

	switch format := c.Query("format", "csv"); format {
	case "csv":
		filename, payload, err = h.exportFlow.ExportCSV(ctx, clientID)
		contentType = "text/csv"
	case "json":
		filename, payload, err = h.exportFlow.ExportJSON(ctx, clientID)
		contentType = "application/json"
	case "xlsx":
		filename, payload, err = h.exportFlow.ExportXLSX(ctx, clientID)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "report":
		filename, payload, err = h.exportFlow.ExportReport(ctx, clientID)
		contentType = "text/plain"
	default:
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported export format", "INVALID_EXPORT_FORMAT", format)
	}

	if err != nil {
		log.Println("Export failed", err)
		return h.businessErrorResponse(c, err, "Export failed", "EXPORT_FAILED")
	}

	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}
