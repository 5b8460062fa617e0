// Package server provides the HTTP entrypoint for formgate.
//
// One route does the work: POST /slack/events receives both slash-command
// invocations and interaction payloads. The request signature is verified,
// the platform acknowledgement is written immediately, and the event is
// then processed asynchronously. Slack allows only a few seconds for the
// acknowledgement, independent of how long persistence takes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/formgate/internal/config"
	"github.com/fyrsmithlabs/formgate/internal/logging"
)

// maxBodyBytes caps inbound request bodies (Slack payloads are small).
const maxBodyBytes = 1 << 20 // 1MB

// EventHandler consumes verified Slack events after acknowledgement.
type EventHandler interface {
	HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand)
	HandleInteraction(ctx context.Context, cb *slack.InteractionCallback)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the HTTP endpoints for formgate.
type Server struct {
	echo          *echo.Echo
	handler       EventHandler
	signingSecret config.Secret
	logger        *logging.Logger
	config        *Config

	// inflight tracks async event processing so Shutdown can wait for
	// submissions already past their acknowledgement.
	inflight sync.WaitGroup
}

// NewServer creates a new HTTP server.
func NewServer(handler EventHandler, signingSecret config.Secret, logger *logging.Logger, cfg *Config) (*Server, error) {
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	if !signingSecret.IsSet() {
		return nil, errors.New("signing secret is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "0.0.0.0",
			Port: 3000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	// 60 requests per minute per IP with a burst of 10
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(1),
			Burst:     10,
			ExpiresIn: time.Hour,
		}),
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:          e,
		handler:       handler,
		signingSecret: signingSecret,
		logger:        logger,
		config:        cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/slack/events", s.handleSlackEvents)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server, waiting for event processing
// that was already acknowledged.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
