package server

import (
	"strings"

	"github.com/labstack/echo/v4"
)

func (s *Server) registerRoutes() {
	base := strings.TrimSuffix(s.cfg.Server.BasePath, "/")
	api := s.echo.Group(base)

	api.GET("/health", s.handleHealth)
	api.GET("/book/:id", s.handleBook)
	api.GET("/book/:id/metadata", s.handleMetadata)
	api.GET("/analyze/:id", s.handleAnalyze)
	api.GET("/stats/:id", s.handleStats)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.echo.GET(path, echo.WrapHandler(s.metrics.Handler()))
	}
}
