// Package httpapi serves the family task tracker over JSON.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"family-tasks/internal/metrics"
	"family-tasks/internal/service"
)

// Services are the dependencies the handlers call into.
type Services struct {
	Family   *service.FamilyService
	Tasks    *service.TaskService
	Sprints  *service.SprintService
	Telegram *service.TelegramService
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	svc     Services
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer creates the echo instance and registers every route.
func NewServer(svc Services, m *metrics.Metrics, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if svc.Family == nil || svc.Tasks == nil || svc.Sprints == nil || svc.Telegram == nil {
		return nil, fmt.Errorf("all services are required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		svc:     svc,
		metrics: m,
		logger:  logger.Named("http"),
		now:     time.Now,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(s.requestLogger)

	s.registerRoutes()
	return s, nil
}

// WithClock replaces the time source used to pick "today" for views.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/parents", s.handleRegisterParent)

	parent := v1.Group("/parents/:code", s.requireParent)
	parent.GET("", s.handleDashboard)
	parent.POST("/children", s.handleAddChild)
	parent.DELETE("/children/:id", s.handleDeleteChild)
	parent.POST("/children/:id/sprints", s.handleCreateSprint)
	parent.POST("/tasks", s.handleCreateTask)
	parent.DELETE("/tasks/:id", s.handleDeleteTask)
	parent.PUT("/templates/:id/pattern", s.handleUpdatePattern)
	parent.POST("/sprints/:id/complete", s.handleCompleteSprint)
	parent.PUT("/sprints/:id", s.handleUpdateSprint)
	parent.DELETE("/telegram", s.handleUnlinkTelegram)

	child := v1.Group("/children/:code")
	child.GET("", s.handleChildView)
	child.GET("/calendar/:date", s.handleCalendar)
	child.POST("/tasks/:id/toggle", s.handleToggle)
	child.PUT("/tasks/:id/schedule", s.handleReschedule)
	child.PUT("/avatar", s.handleAvatar)
}

// requestLogger logs and counts every request once it has been handled.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		status := c.Response().Status
		s.metrics.Request(c.Request().Method, c.Path(), status)

		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("http request", append(fields, zap.Error(err))...)
		} else {
			s.logger.Info("http request", fields...)
		}
		return nil
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// ServeHTTP lets tests drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
