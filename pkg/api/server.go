package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/tdgammon/pkg/agent"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host         string        // Host to bind to (default "localhost")
	Port         int           // Port to listen on (default 8080)
	ReadTimeout  time.Duration // Read timeout (default 30s)
	WriteTimeout time.Duration // Write timeout (default 30s)
	IdleTimeout  time.Duration // Idle timeout (default 60s)
	MaxRequests  int           // Max concurrent JSON requests (default 100)
	MaxSessions  int           // Max concurrent play sessions (default 16)
	Seed         uint64        // Base seed for session dice
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxRequests:  100,
		MaxSessions:  16,
		Seed:         1,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	handlers *Handlers
	pool     *WorkerPool
	log      zerolog.Logger
}

// NewServer creates a new API server. model may be nil.
func NewServer(model agent.Evaluator, config ServerConfig, version string, logger zerolog.Logger) *Server {
	pool := NewWorkerPool(PoolConfig{
		MaxRequests: config.MaxRequests,
		MaxSessions: config.MaxSessions,
	})
	return &Server{
		config:   config,
		handlers: NewHandlers(model, version, pool, config.Seed, logger),
		pool:     pool,
		log:      logger,
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handlers.Health)
	mux.HandleFunc("POST /api/moves", s.handlers.Moves)
	mux.HandleFunc("POST /api/evaluate", s.handlers.Evaluate)
	mux.HandleFunc("GET /api/play", s.handlers.Play)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully. Play
// sessions see the cancellation through their request context.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info().Msg("server stopped gracefully")
	return nil
}
