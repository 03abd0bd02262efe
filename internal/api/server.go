package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/traktdb/internal/api/handlers"
	"github.com/amaumene/traktdb/internal/api/middleware"
	"github.com/amaumene/traktdb/internal/config"
	"github.com/amaumene/traktdb/internal/metrics"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	app     *fiber.App
	addr    string
	db      *models.Database
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, m *metrics.Metrics, logger *logrus.Logger) *Server {
	s := &Server{
		addr:    ":" + cfg.ServerPort,
		db:      db,
		metrics: m,
		logger:  logger,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(middleware.Logging(logger))
	s.setupRoutes()

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	s.app.Get("/health", healthHandler.Handle)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	s.app.Get("/status", statusHandler.Handle)

	// Queries
	watchLogHandler := handlers.NewWatchLogHandler(s.db, s.logger)
	s.app.Get("/watchlog", watchLogHandler.Handle)

	searchHandler := handlers.NewSearchHandler(s.db, s.logger)
	s.app.Get("/search", searchHandler.Handle)

	// Prometheus
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
