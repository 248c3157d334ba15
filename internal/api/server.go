// Package api provides the HTTP API and WebSocket event feed for the
// command engine.
//
// It exposes device registry reads, state writes routed through the
// command coordinator, rollback, and pending-command inspection. State
// changes and command lifecycle events stream to WebSocket clients.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/device"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/config"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/infrastructure/logging"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/iot"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/journal"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandPublisher is the slice of the command coordinator the server
// depends on.
type CommandPublisher interface {
	Publish(deviceID, topic string, payload state.CommandPayload) (iot.PendingCommand, error)
	RequestRefresh(topic string) error
	Pending() ([]iot.PendingCommand, error)
	ExpireCommands() ([]iot.PendingCommand, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *device.Registry
	Commands CommandPublisher   // optional; writes fail without it
	Journal  journal.Repository // optional; history queries 404 without it

	// ExternalHub, if set, is used instead of creating a new hub. Needed
	// when the engine wiring also broadcasts through the hub.
	ExternalHub *Hub
	Version     string
}

// Server is the HTTP API server for the command engine.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry *device.Registry
	commands CommandPublisher
	journal  journal.Repository
	version  string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	// Commands is optional; writes return 503 without it but reads and
	// the event feed still function.

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		commands: deps.Commands,
		journal:  deps.Journal,
		version:  deps.Version,
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if needed. Engine
// wiring uses this to broadcast coordinator events before Start runs.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It builds the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. Stop with Close().
//
// Parameters:
//   - ctx: Context governing background goroutines
//
// Returns:
//   - error: Reserved for future listener validation; currently always nil
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to
// gracefulShutdownTimeout for in-flight requests to complete.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
