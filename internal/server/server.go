package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rickgao/oracle-consensus/internal/model"
	"github.com/rickgao/oracle-consensus/internal/store"
	"github.com/rickgao/oracle-consensus/internal/version"
)

// Store is the read side of the price store.
type Store interface {
	GetLatest(ctx context.Context, symbol string) (model.Observation, error)
	Ping(ctx context.Context) map[store.Tier]error
}

// Config holds HTTP server settings.
type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	HealthTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":3000",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		HealthTimeout: 3 * time.Second,
	}
}

// Server serves price queries.
type Server struct {
	cfg    Config
	store  Store
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

// New creates a Server. Zero config fields take defaults.
func New(cfg Config, st Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = def.HealthTimeout
	}
	return &Server{cfg: cfg, store: st, logger: logger}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oracle/price/{symbol}", s.handlePrice)
	mux.HandleFunc("GET /health", s.handleHealth)
	return instrument(mux, s.logger)
}

// Start binds the listen address and serves in the background. A bind
// failure is returned immediately. Cancelling ctx does not stop the
// server; call Stop.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	// Requests keep ctx values but not its cancellation, so a shutdown
	// signal lets in-flight requests drain.
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("http server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	s.logger.Info("http server stopped")
	return err
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	obs, err := s.store.GetLatest(r.Context(), symbol)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, s.logger, http.StatusNotFound, "Price not found")
		return
	case err != nil:
		s.logger.Error("failed to get latest price", "symbol", symbol, "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, s.logger, http.StatusOK, obs)
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status     string         `json:"status"`
	Version    string         `json:"version"`
	Components map[string]any `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthTimeout)
	defer cancel()

	health := healthResponse{
		Status:     "healthy",
		Version:    version.Version,
		Components: make(map[string]any),
	}

	for tier, err := range s.store.Ping(ctx) {
		if err != nil {
			health.Status = "unhealthy"
			health.Components[string(tier)] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
			continue
		}
		health.Components[string(tier)] = "connected"
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, s.logger, status, health)
}
