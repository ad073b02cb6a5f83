package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/service"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/ws"
)

type Dependencies struct {
	Service        *service.AttendanceService
	DB             handler.Pinger
	Hub            *ws.Hub
	APIKeyHash     string
	DefaultStation string
	// RateLimitPerMinute of 0 disables rate limiting.
	RateLimitPerMinute int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Rollcall API",
		BodyLimit:    12 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var (
		db      handler.Pinger
		gallery handler.GallerySizer
	)
	if r.deps != nil {
		db = r.deps.DB
		if r.deps.Service != nil {
			gallery = r.deps.Service
		}
	}

	// Health check endpoints (no auth required)
	healthHandler := handler.NewHealthHandler(db, gallery)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil || r.deps.Service == nil {
		return
	}

	// API v1 group with authentication
	v1 := r.app.Group("/v1")
	v1.Use(middleware.Auth(r.deps.APIKeyHash))

	if r.deps.RateLimitPerMinute > 0 {
		cfg := middleware.DefaultRateLimiterConfig()
		cfg.Max = r.deps.RateLimitPerMinute
		r.rateLimiter = middleware.NewRateLimiter(cfg)
		v1.Use(r.rateLimiter.Handler())
	}

	svc := r.deps.Service

	enrollmentHandler := handler.NewEnrollmentHandler(svc, r.logger)
	v1.Post("/enrollments", enrollmentHandler.Create)
	v1.Get("/enrollments", enrollmentHandler.List)
	v1.Delete("/enrollments/:identity_id", enrollmentHandler.Delete)
	v1.Post("/gallery/reload", enrollmentHandler.Reload)

	recognitionHandler := handler.NewRecognitionHandler(svc, r.deps.DefaultStation, r.logger)
	v1.Post("/recognitions", recognitionHandler.Recognize)
	v1.Post("/recognitions/embeddings", recognitionHandler.RecognizeEmbeddings)

	attendanceHandler := handler.NewAttendanceHandler(svc, r.logger)
	v1.Get("/attendance", attendanceHandler.List)

	// WebSocket display feed
	if r.deps.Hub != nil {
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
