package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/handoff/internal"
	"github.com/DukeRupert/handoff/internal/clientip"
	"github.com/DukeRupert/handoff/internal/handler"
	"github.com/DukeRupert/handoff/internal/handoff"
	"github.com/DukeRupert/handoff/internal/metrics"
	"github.com/DukeRupert/handoff/internal/middleware"
	"github.com/DukeRupert/handoff/internal/response"
	"github.com/DukeRupert/handoff/internal/service"
	"github.com/DukeRupert/handoff/internal/session"
)

// app is the assembled HTTP surface plus whatever must be stopped on exit.
type app struct {
	handler http.Handler
	stop    func()
}

// newApp wires codecs, lifecycle, middleware and routes from cfg.
func newApp(cfg *internal.Config, logger *slog.Logger) (*app, error) {
	// Initialize codecs. Both share the one immutable key.
	tokens := handoff.NewCodec(cfg.Secret)
	sessions := session.NewCodec(cfg.Secret)

	// Initialize services
	sessionService := service.NewSessionService(tokens, sessions, logger)

	// Initialize middleware
	ips := clientip.New(cfg.TrustProxyHeaders)
	cookies := session.NewCookies(cfg.SessionCookieName, cfg.IsSecure())
	sessionMw := middleware.NewSessionMiddleware(sessionService, cookies, logger)
	loginLimiter := middleware.NewLoginRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, ips, logger)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger, ips)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(cfg.IsSecure())

	metricsAuth, err := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if err != nil {
		loginLimiter.Stop()
		return nil, fmt.Errorf("metrics auth initialization failed: %w", err)
	}
	if !metricsAuth.Enabled() {
		logger.Warn("Metrics endpoint is unprotected; set METRICS_USERNAME and METRICS_PASSWORD")
	}

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessionService, cookies, loginLimiter, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Session routes
	sessionHandler.RegisterRoutes(mux, handler.RouteMiddleware{
		Login:   loginLimiter.LimitLogin,
		Session: sessionMw.WithIdentity,
	})

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Everything else is a JSON 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, logger)
	})

	global := middleware.Stack(
		metrics.Middleware,
		requestLogging.Handler,
		securityHeaders.Handler,
	)

	return &app{
		handler: global(mux),
		stop:    loginLimiter.Stop,
	}, nil
}

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.stop()

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
