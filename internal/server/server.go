// Package server is the HTTP bridge: it exposes the dispatcher to a
// notebook UI running in a browser.
//
// ROUTE STRUCTURE:
//
//	GET  /api/health     → runtime availability (JSON)
//	GET  /api/languages  → supported language identifiers (JSON)
//	POST /api/execute    → run one cell, always 200 with a Result (JSON)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Recoverer: catches panics and returns 500 instead of crashing
//  4. Logger: logs each request with timing info
//  5. CORS: the UI is served from another origin
//
// Bearer-token auth is added on /api/execute only, and only when a JWT
// secret is configured.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/cellexec/internal/auth"
	"github.com/sakif/cellexec/internal/handler"
	"github.com/sakif/cellexec/internal/middleware"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// JWTSecret enables bearer-token auth on /api/execute when non-empty.
	JWTSecret    string
	MaxCodeBytes int
	// WriteTimeout must outlast the longest execution, or slow cells are
	// cut off mid-response.
	WriteTimeout time.Duration
	// ShutdownTimeout bounds how long in-flight requests may finish.
	ShutdownTimeout time.Duration
}

// Server owns the router and everything it serves.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	exec   handler.Executor
	tokens *auth.TokenService
}

// New wires handlers, middleware and routes around exec.
func New(cfg Config, exec handler.Executor, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		exec:   exec,
	}

	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("configuring auth: %w", err)
		}
		s.tokens = tokens
	} else {
		logger.Warn("no JWT secret configured, /api/execute is open to anyone who can reach the bridge")
	}

	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	statusHandler := handler.NewStatusHandler(s.exec, s.logger)
	executeHandler := handler.NewExecuteHandler(s.exec, s.config.MaxCodeBytes, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", statusHandler.HandleHealth)
		r.Get("/languages", statusHandler.HandleLanguages)

		r.Group(func(r chi.Router) {
			if s.tokens != nil {
				r.Use(auth.RequireBearer(s.tokens))
			}
			r.Post("/execute", executeHandler.HandleExecute)
		})
	})
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully: no new connections, in-flight requests get
// ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening",
			slog.String("addr", ln.Addr().String()),
			slog.Bool("auth", s.tokens != nil),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.String("reason", context.Cause(ctx).Error()))

		shutdownTimeout := s.config.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
