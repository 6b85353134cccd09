// Package api exposes the detector over HTTP with fiber.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pndeyyash-cmd/ai-content-detector/internal/cache"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/circuitbreaker"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/config"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/detector"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/gocommon"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/services"
	"github.com/pndeyyash-cmd/ai-content-detector/internal/store"
)

const serviceName = "ai-content-detector"

// Backend names used for circuit breakers and readiness checks.
const (
	backendStore = "store"
	backendCache = "cache"
)

// Deps are the collaborators the handlers need. Cache and Auth are optional.
type Deps struct {
	Config   *config.Config
	Detector *detector.Detector
	Store    store.Store
	Cache    *cache.RedisCache
	Breakers *circuitbreaker.Registry
	Metrics  *gocommon.Metrics
	Gatherer prometheus.Gatherer
	Auth     fiber.Handler
	Logger   *slog.Logger
	Now      func() time.Time
}

// Server owns the fiber app and the readiness state.
type Server struct {
	App *fiber.App

	deps     Deps
	draining atomic.Bool

	detect  *DetectHandler
	reports *ReportHandler
}

// New builds the fiber app and registers every route.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	cfg := deps.Config
	app := fiber.New(fiber.Config{
		AppName:      "AI Content Detector API",
		ServerHeader: serviceName,
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorHandler: errorHandler(deps.Logger),
	})

	s := &Server{App: app, deps: deps}
	s.detect = &DetectHandler{deps: deps, events: newEventRecorder(deps)}
	s.reports = &ReportHandler{deps: deps, qr: services.NewQRService()}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	app := s.App

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":      "AI Content Detector API",
			"modelVersion": detector.ModelVersion,
			"status":       "running",
		})
	})
	app.Get("/health", s.health)
	app.Get("/ready", s.ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	v1 := app.Group("/v1")
	if s.deps.Auth != nil {
		v1.Use(s.deps.Auth)
	}

	limited := rateLimit(s.deps)
	v1.Post("/detect", limited, s.detect.DetectContent)
	v1.Post("/detect/file", limited, s.detect.DetectFile)

	v1.Post("/reports", s.reports.Create)
	v1.Get("/reports/:id", s.reports.Get)
	v1.Get("/reports/:id/download", s.reports.Download)
	v1.Get("/reports/:id/qr", s.reports.QR)

	v1.Get("/stats", s.stats)
}

// Drain marks the server not ready so load balancers stop routing to it.
func (s *Server) Drain() {
	s.draining.Store(true)
}

// errorHandler renders every error in the shared envelope.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}

		return c.Status(code).JSON(gocommon.NewError(errorCode(code), msg))
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	case fiber.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= 500 {
		return "internal_error"
	}
	return http.StatusText(status)
}
