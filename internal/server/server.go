// Package server exposes the assistant over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/config"
)

// Default rate limit applied to all routes.
const (
	DefaultRatePerSecond = 10.0
	DefaultBurst         = 20
)

// Server wires routes, middleware and lifecycle together.
type Server struct {
	cfg       *config.Config
	assistant Answerer
	counter   Counter
	logger    zerolog.Logger
	limiter   *RateLimiter
}

// New creates a server. counter is usually the corpus store.
func New(cfg *config.Config, assistant Answerer, counter Counter, logger zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		assistant: assistant,
		counter:   counter,
		logger:    logger,
		limiter:   NewRateLimiter(DefaultRatePerSecond, DefaultBurst),
	}
}

// Handler builds the full middleware chain and routes.
func (s *Server) Handler() http.Handler {
	h := &handlers{assistant: s.assistant, counter: s.counter}

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/answer", h.answer)
	apiMux.HandleFunc("/api/followups", h.followUps)
	apiMux.HandleFunc("/api/stats", h.stats)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health)
	mux.Handle("/api/", RequireAuth(apiMux, s.cfg.Security))

	// Origin validation guards the websocket; browsers cannot send bearer tokens.
	mux.Handle("/ws/chat", &chatHandler{
		assistant:      s.assistant,
		originPatterns: s.originPatterns(),
		logger:         s.logger,
	})

	handler := RateLimitMiddleware(mux, s.limiter)
	handler = securityHeadersMiddleware(handler)
	return requestLogger(handler, s.logger)
}

func (s *Server) originPatterns() []string {
	port := s.cfg.Server.Port
	return []string{
		fmt.Sprintf("localhost:%d", port),
		fmt.Sprintf("127.0.0.1:%d", port),
		fmt.Sprintf("%s:%d", s.cfg.Server.Host, port),
	}
}

// Start listens on the configured address and serves until ctx is done.
// It returns the actual address being listened on (useful with port 0).
func (s *Server) Start(ctx context.Context) (string, error) {
	addr := net.JoinHostPort(s.cfg.Server.Host, fmt.Sprint(s.cfg.Server.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("server shutdown error")
		}
	}()

	s.logger.Info().Str("addr", actualAddr).Msg("server listening")
	return actualAddr, nil
}
