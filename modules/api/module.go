package api

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mulliganw/ahsoftwareclub-website/modules/activity"
	"github.com/mulliganw/ahsoftwareclub-website/modules/auth"
	"github.com/mulliganw/ahsoftwareclub-website/modules/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/store"
)

// Config holds the transport settings.
type Config struct {
	Addr               string
	MaxFrameBytes      int64
	MessagesPerSecond  float64
	MessageBurst       int
	CORSAllowedOrigins string
}

// ActivityReader exposes per-room activity counters.
type ActivityReader interface {
	Snapshot(room string) (activity.RoomActivity, bool)
}

// HealthSource is a module whose health is reported on /health.
type HealthSource interface {
	Name() string
	Health(ctx context.Context) mono.HealthStatus
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app      *fiber.App
	cfg      Config
	chat     *chat.Service
	activity ActivityReader
	archive  store.ArchivePort
	auth     auth.AuthPort
	sources  []HealthSource
	logger   types.Logger

	connections atomic.Int64
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, chatService *chat.Service, activity ActivityReader, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:      cfg,
		chat:     chatService,
		activity: activity,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"store", "auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "store":
		m.archive = store.NewArchiveAdapter(container)
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	}
}

// SetHealthSources sets the modules reported by GET /health (called from main.go).
func (m *APIModule) SetHealthSources(sources ...HealthSource) {
	m.sources = sources
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.archive == nil {
		return fmt.Errorf("store dependency not set")
	}
	if m.auth == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.chat == nil {
		return fmt.Errorf("chat service not set")
	}

	m.app = m.newApp()

	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server", "open_connections", m.connections.Load())
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":              m.cfg.Addr,
			"connected_clients": m.connections.Load(),
		},
	}
}

// newApp builds the Fiber application with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		// Websocket connections are logged by the session.
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
