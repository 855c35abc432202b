// Package gateway serves the chat orchestrator over HTTP: a streaming SSE relay
// plus read-only model, health, and turn history routes.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/chatgate/gateway/worker"
	"github.com/papercomputeco/chatgate/pkg/chat"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

// Route paths.
const (
	StreamPath = "/v1/chat/stream"
	ModelsPath = "/v1/models"
	HealthPath = "/v1/health"
	TurnsPath  = "/v1/turns"
	PingPath   = "/ping"
)

// Server is the chat gateway.
// Each POST to StreamPath maps to exactly one orchestrator turn; completed
// turns are handed to the worker pool for storage off the hot path.
type Server struct {
	config     Config
	chat       *chat.Orchestrator
	driver     storage.Driver
	workerPool *worker.Pool
	logger     *slog.Logger
	app        *fiber.App

	// turns parents every relayed turn; Close cancels it.
	turns     context.Context
	stopTurns context.CancelFunc
}

// New creates a new gateway Server.
// The driver is injected so the same store can back other readers.
func New(config Config, orchestrator *chat.Orchestrator, driver storage.Driver, logger *slog.Logger) (*Server, error) {
	wp, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  config.Publisher,
		NumWorkers: config.Workers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	turns, stopTurns := context.WithCancel(context.Background())
	s := &Server{
		config:     config,
		chat:       orchestrator,
		driver:     driver,
		workerPool: wp,
		logger:     logger,
		app:        app,
		turns:      turns,
		stopTurns:  stopTurns,
	}

	app.Use(recover.New())

	// Compression buffers the whole body, so the stream route is exempt.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == StreamPath
		},
	}))

	app.Get(PingPath, s.handlePing)

	v1 := app.Group("/v1", s.authMiddleware())
	v1.Post("/chat/stream", s.handleStream)
	v1.Get("/models", s.handleModels)
	v1.Get("/health", s.handleHealth)
	v1.Get("/turns", s.handleListTurns)
	v1.Get("/turns/:id", s.handleGetTurn)

	return s, nil
}

// Run starts the gateway on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting gateway",
		"listen", s.config.ListenAddr,
		"providers", s.chat.Registry().Providers(),
		"default_provider", s.chat.Registry().Default(),
		"auth", s.config.AuthToken != "",
	)

	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the gateway using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting gateway",
		"listen", listener.Addr().String(),
		"providers", s.chat.Registry().Providers(),
	)

	return s.app.Listener(listener)
}

// Handler exposes the gateway as a net/http handler. Responses are buffered
// by the bridge, so streaming clients should use Run instead.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Close cancels in-flight turns, stops accepting requests and waits for the
// worker pool to drain.
func (s *Server) Close() error {
	s.stopTurns()
	err := s.app.Shutdown()
	s.workerPool.Close()
	return err
}
