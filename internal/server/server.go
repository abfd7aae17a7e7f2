// Package server exposes the engine over JSON HTTP. The surrounding platform
// owns authentication; callers identify themselves with the X-User-ID header.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/example/studyengine/internal/excel"
	"github.com/example/studyengine/internal/study"
)

// Server wraps the echo instance and its dependencies.
type Server struct {
	echo     *echo.Echo
	svc      *study.Service
	importer *excel.Importer
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates and configures a server around the study service.
func New(svc *study.Service, importer *excel.Importer, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		svc:      svc,
		importer: importer,
		validate: validator.New(),
		logger:   logger,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.echo.Group("/api/v1")

	v1.POST("/reviews", s.handleSubmitReview)
	v1.POST("/reviews/skip", s.handleSkip)
	v1.GET("/due-cards", s.handleDueCards)
	v1.POST("/evaluate", s.handleEvaluate)
	v1.GET("/cards/:id/presentation", s.handlePresentation)
	v1.POST("/cards/import", s.handleImportCards)
	v1.GET("/settings/frequency", s.handleGetFrequency)
	v1.PUT("/settings/frequency", s.handlePutFrequency)
	v1.POST("/sessions", s.handleRecordSession)
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/stats", s.handleCourseStats)
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			s.logger.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return nil
		}
	}
}

// Start begins serving on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
