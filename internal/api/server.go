package api

import (
	"context"
	"errors"
	"time"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Server exposes statuses, proxy actions and recent events over HTTP.
type Server struct {
	logger zerolog.Logger
	cfg    *config.APIConfig
	app    *fiber.App
}

func NewServer(cfg *config.APIConfig, store statusReader, inv inventory, proxies proxyController, rec resourceReconciler, events eventLog, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(requestLogger(logger))

	h := &handler{
		logger:     logger,
		store:      store,
		inventory:  inv,
		proxies:    proxies,
		reconciler: rec,
		events:     events,
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api").Group("/v1")

	resources := v1.Group("/resources")
	resources.Get("/", h.listStatuses)
	resources.Get("/:id/status", h.resourceStatus)
	resources.Post("/:id/reconcile", h.reconcileResource)

	servers := v1.Group("/servers")
	servers.Get("/:id/proxy", h.proxyStatus)
	servers.Post("/:id/proxy/start", h.startProxy)
	servers.Post("/:id/proxy/stop", h.stopProxy)
	servers.Post("/:id/proxy/restart", h.restartProxy)

	v1.Get("/events", h.recentEvents)

	return &Server{logger: logger, cfg: cfg, app: app}
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("[api] Listening")
		errCh <- s.app.Listen(s.cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("[api] Shutting down")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("took", time.Since(start)).
			Msg("[api] Request")
		return err
	}
}
