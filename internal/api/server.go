package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coloradocovid/covid-data-etl/internal/config"
)

// invalidateHeader carries the shared key for the invalidation endpoint.
const invalidateHeader = "invalidate-cache-key"

// Server is the public read API.
type Server struct {
	app    *fiber.App
	cache  *Cache
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer builds the Fiber app and wires the routes.
func NewServer(cache *Cache, cfg *config.Config, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "covid-data-api",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
			})
		},
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{app: app, cache: cache, cfg: cfg, logger: logger}

	app.Get("/data/", s.handleData)
	app.Post("/invalidate_cache/", s.handleInvalidate)
	app.Get("/health/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return s
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("api listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleData(c *fiber.Ctx) error {
	data, lastUpdated, err := s.cache.Get(c.Context())
	if err != nil {
		s.logger.Error("aggregation failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "data temporarily unavailable")
	}
	return c.JSON(fiber.Map{
		"data":         data,
		"last_updated": lastUpdated.Format(LastUpdatedLayout),
	})
}

func (s *Server) handleInvalidate(c *fiber.Ctx) error {
	key := c.Get(invalidateHeader)
	if s.cfg.CacheInvalidateKey == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.CacheInvalidateKey)) != 1 {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"status": "unauthorized"})
	}
	s.cache.Invalidate()
	return c.JSON(fiber.Map{"status": "success"})
}
