// Package http serves the notesd REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/enhance"
	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/notes"
	"github.com/fyrsmithlabs/notesd/internal/settings"
	"github.com/fyrsmithlabs/notesd/internal/store"
)

const (
	defaultBodyLimit = "2M"
	healthTimeout    = 2 * time.Second
)

// Enhancer rewrites text. *enhance.Client implements it.
type Enhancer interface {
	Enhance(ctx context.Context, text, tone string) enhance.Result
}

// Deps are the components the API serves.
type Deps struct {
	Session  *notes.Session
	Settings *settings.Service
	Enhancer Enhancer
	// Store is pinged by /health.
	Store   store.Store
	Version string
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the notesd HTTP API.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *zap.Logger
	config *Config
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Session == nil {
		return nil, errors.New("session is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("settings service is required")
	}
	if deps.Enhancer == nil {
		return nil, errors.New("enhancer is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8765}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
		config: cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(defaultBodyLimit))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			ctx := logging.WithRequestID(req.Context(), id)
			ctx = logging.WithSessionID(ctx, s.deps.Session.ID())
			c.SetRequest(req.WithContext(ctx))
		},
	}))
	e.Use(unescapePathParams)
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(s.requestLogger)

	s.registerRoutes()
	return s, nil
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// Let echo write the error response so the status is final.
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status
		fields := append(logging.ContextFields(req.Context()),
			zap.String("method", req.Method),
			zap.String("route", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("http request", append(fields, zap.Error(err))...)
		case req.URL.Path == "/health" || req.URL.Path == "/metrics":
			s.logger.Debug("http request", fields...)
		default:
			s.logger.Info("http request", fields...)
		}
		return nil
	}
}

// unescapePathParams decodes route params. echo matches on the raw path
// when the request carries escaped characters such as %2F, and then hands
// the params over still escaped.
func unescapePathParams(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().URL.RawPath == "" {
			return next(c)
		}
		values := c.ParamValues()
		decoded := make([]string, len(values))
		for i, v := range values {
			u, err := url.PathUnescape(v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid path parameter")
			}
			decoded[i] = u
		}
		c.SetParamValues(decoded...)
		return next(c)
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	v1.GET("/notes", s.handleListNotes)
	v1.POST("/notes", s.handleCreateNote)
	v1.POST("/notes/reload", s.handleReload)
	v1.GET("/notes/:id", s.handleGetNote)
	v1.PATCH("/notes/:id", s.handleUpdateNote)
	v1.DELETE("/notes/:id", s.handleDeleteNote)
	v1.POST("/notes/:id/favorite", s.handleToggleFavorite)
	v1.POST("/notes/:id/pin", s.handleTogglePin)
	v1.POST("/notes/:id/tags", s.handleAddTag)
	v1.DELETE("/notes/:id/tags/:tag", s.handleRemoveTag)

	v1.GET("/history", s.handleHistory)
	v1.POST("/history/undo", s.handleUndo)
	v1.POST("/history/redo", s.handleRedo)

	v1.GET("/settings", s.handleGetSettings)
	v1.PUT("/settings", s.handlePutSettings)

	v1.POST("/enhance", s.handleEnhance)
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.Addr()))
	return s.echo.Start(s.Addr())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
