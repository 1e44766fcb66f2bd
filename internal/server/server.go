// Package server exposes the book and analysis endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/bookgraph/internal/cache"
	"github.com/ppiankov/bookgraph/internal/metrics"
	"github.com/ppiankov/bookgraph/internal/model"
)

// Service is what the handlers need from the pipeline.
type Service interface {
	FetchBook(ctx context.Context, id string) (*model.Book, error)
	FetchMetadata(ctx context.Context, id string) (*model.BookMetadata, error)
	AnalyzeText(ctx context.Context, text string) (*model.Graph, error)
}

type requestValidator struct {
	validator *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.validator.Struct(i)
}

// Server is the HTTP API.
type Server struct {
	echo    *echo.Echo
	cfg     *model.Config
	svc     Service
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds the API. c and m may be nil to disable caching and metrics.
func New(cfg *model.Config, svc Service, c cache.Cache, m *metrics.Metrics, logger *zap.Logger) *Server {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validator: validator.New()}

	s := &Server{
		echo:    e,
		cfg:     cfg,
		svc:     svc,
		cache:   c,
		metrics: m,
		logger:  logger,
	}

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.echo.Server.ReadTimeout = s.cfg.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.Server.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			zap.String("addr", s.cfg.Server.Addr),
			zap.String("base_path", s.cfg.Server.BasePath),
		)
		if err := s.echo.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shut down server", zap.Error(err))
		return err
	}
	return nil
}
