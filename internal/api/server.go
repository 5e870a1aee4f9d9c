package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rushdelivery/rush-core/internal/auth"
	"github.com/rushdelivery/rush-core/internal/infrastructure/config"
	"github.com/rushdelivery/rush-core/internal/infrastructure/logging"
	"github.com/rushdelivery/rush-core/internal/tracking"
)

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config *config.Config
	Logger *logging.Logger
	Store  *tracking.Store
	Guard  *auth.Guard

	// OnTick, when set, is invoked on every heartbeat with the current
	// WebSocket connection count. Used to feed the telemetry gauge.
	OnTick func(connections int)

	// Version is reported by the health endpoint.
	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    *tracking.Store
	guard    *auth.Guard
	hub      *Hub
	validate *validator.Validate
	onTick   func(int)
	version  string

	httpServer *http.Server
	cancel     context.CancelFunc
}

// New creates an API server. Start must be called before it serves
// traffic.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Guard == nil {
		return nil, errors.New("guard is required")
	}

	s := &Server{
		cfg:      deps.Config,
		logger:   deps.Logger.With("component", "api"),
		store:    deps.Store,
		guard:    deps.Guard,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		onTick:   deps.OnTick,
		version:  deps.Version,
	}
	s.hub = NewHub(deps.Config.WebSocket, s.logger)

	// Every store mutation reaches connected dashboards in commit order.
	s.store.Subscribe(func(ev tracking.Event) {
		s.hub.Broadcast(string(ev.Type), ev.Payload)
	})

	return s, nil
}

// Hub exposes the WebSocket hub, primarily for wiring and tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins serving HTTP traffic and launches the dashboard
// heartbeat. It returns once the listener is bound; serving continues in
// the background until Close or context cancellation.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.API.Host, fmt.Sprintf("%d", s.cfg.API.Port))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
		IdleTimeout:  s.cfg.GetIdleTimeout(),
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	heartbeatCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.runHeartbeat(heartbeatCtx)

	go func() {
		s.logger.Info("api server listening", "addr", addr)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped unexpectedly", "error", err)
		}
	}()

	return nil
}

// Close shuts the server down gracefully: stop the heartbeat, drop all
// WebSocket clients, then drain in-flight HTTP requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	s.hub.Close()

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	s.logger.Info("api server stopped")
	return nil
}
