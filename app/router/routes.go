// Package router provides HTTP routing, middleware configuration, and server setup for the API
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/kagemusha-ai/kagemusha/app/dto"
	"github.com/kagemusha-ai/kagemusha/app/handlers"
	"github.com/kagemusha-ai/kagemusha/app/middleware"
	"github.com/kagemusha-ai/kagemusha/config"
	"github.com/kagemusha-ai/kagemusha/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	cfg             *config.ProductionConfig
	clientHandler   handlers.ClientHandlerInterface
	promptHandler   handlers.PromptHandlerInterface
	auditHandler    handlers.AuditHandlerInterface
	metricsHandler  handlers.MetricsHandlerInterface
	scheduleHandler handlers.ScheduleHandlerInterface
	exportHandler   handlers.ExportHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	clientHandler handlers.ClientHandlerInterface,
	promptHandler handlers.PromptHandlerInterface,
	auditHandler handlers.AuditHandlerInterface,
	metricsHandler handlers.MetricsHandlerInterface,
	scheduleHandler handlers.ScheduleHandlerInterface,
	exportHandler handlers.ExportHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Kagemusha API",
		ServerHeader: "Kagemusha",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		cfg:             cfg,
		clientHandler:   clientHandler,
		promptHandler:   promptHandler,
		auditHandler:    auditHandler,
		metricsHandler:  metricsHandler,
		scheduleHandler: scheduleHandler,
		exportHandler:   exportHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	api.Get("/health", r.healthCheck)

	// Clients
	clients := api.Group("/clients")
	clients.Post("/", r.clientHandler.AddClient)
	clients.Get("/", r.clientHandler.ListClients)
	clients.Post("/:id/select", r.clientHandler.SelectClient)
	clients.Delete("/:id", r.clientHandler.DeleteClient)

	// Prompt registry
	prompts := api.Group("/clients/:clientId/prompts")
	prompts.Post("/", r.promptHandler.AddPrompt)
	prompts.Post("/batch", r.promptHandler.AddManyPrompts)
	prompts.Get("/", r.promptHandler.ListPrompts)
	prompts.Delete("/:promptId", r.promptHandler.DeactivatePrompt)
	prompts.Post("/:promptId/reactivate", r.promptHandler.ReactivatePrompt)
	prompts.Delete("/", r.promptHandler.ClearPrompts)

	// Audit orchestration
	audits := api.Group("/clients/:clientId/audits")
	audits.Post("/full", r.auditHandler.RunFull)
	audits.Post("/single", r.auditHandler.RunSingle)
	api.Post("/clients/:clientId/campaigns", r.auditHandler.RunCampaign)
	api.Get("/campaigns/:uuid", r.auditHandler.CampaignStatus)
	api.Get("/clients/:clientId/results", r.auditHandler.ListResults)

	// Aggregate views
	metrics := api.Group("/clients/:clientId/metrics")
	metrics.Get("/", r.metricsHandler.Overview)
	metrics.Get("/summary", r.metricsHandler.Summary)
	metrics.Get("/competitor-gap", r.metricsHandler.CompetitorGap)
	metrics.Get("/top-sources", r.metricsHandler.TopSources)
	metrics.Get("/model-stats", r.metricsHandler.ModelStats)
	metrics.Get("/insights", r.metricsHandler.Insights)

	// Schedules
	schedules := api.Group("/clients/:clientId/schedules")
	schedules.Post("/", r.scheduleHandler.CreateSchedule)
	schedules.Get("/", r.scheduleHandler.ListSchedules)
	schedules.Patch("/:scheduleId", r.scheduleHandler.ToggleSchedule)
	schedules.Delete("/:scheduleId", r.scheduleHandler.DeleteSchedule)

	// Exports
	api.Get("/clients/:clientId/export", r.exportHandler.Export)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(recover.New())

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Requested-With", "X-Request-ID", "X-API-Key"},
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "kagemusha-api",
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
