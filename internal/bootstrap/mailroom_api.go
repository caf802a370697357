package bootstrap

import (
	"strings"

	"mailroom_server/adapter/in/http"
	"mailroom_server/adapter/in/worker"
	"mailroom_server/config"
	"mailroom_server/infra/middleware"
	"mailroom_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI wires a standalone API server with its own dependency graph.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}
	return NewAPIWithDeps(cfg, deps, nil), cleanup, nil
}

// NewAPIWithDeps builds the HTTP surface on an existing dependency graph.
// stats is nil when no worker runs in this process.
func NewAPIWithDeps(cfg *config.Config, deps *Dependencies, stats func() worker.LoopStats) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,

		// go-json: faster JSON serialization than encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 10 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" && cfg.IsDevelopment() {
		allowOrigins = "http://localhost:3000,http://localhost:5173"
	}
	if allowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:  allowOrigins,
			AllowMethods:  "GET,OPTIONS",
			AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
			ExposeHeaders: "X-Request-ID",
			MaxAge:        86400,
		}))
	}

	// Health check (no auth required)
	healthHandler := http.NewHealthHandler(deps.DB, deps.Redis)
	healthHandler.Register(app)

	// Read-only operational API
	api := app.Group("/api/v1")
	mailroomHandler := http.NewMailroomHandler(deps.NotificationRepo, deps.RouteRepo, deps.Feed, stats)
	mailroomHandler.Register(api)

	logger.Info("API server initialized successfully")
	return app
}
