package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/bookgraph/internal/graph"
	"github.com/ppiankov/bookgraph/internal/model"
	"github.com/ppiankov/bookgraph/internal/pipeline"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type bookResponse struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// bookParams is shared by every /:id route. Gutenberg ids are plain integers.
type bookParams struct {
	ID string `param:"id" validate:"required,numeric,excludesall=+-."`
}

func (s *Server) bindID(c echo.Context) (string, bool) {
	params := new(bookParams)
	if err := c.Bind(params); err != nil {
		return "", false
	}
	if err := c.Validate(params); err != nil {
		return "", false
	}
	return params.ID, true
}

func invalidID(c echo.Context) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: "Failed to fetch book: invalid book id " + c.Param("id")})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "healthy", Message: "Backend is running!"})
}

func (s *Server) handleBook(c echo.Context) error {
	id, ok := s.bindID(c)
	if !ok {
		return invalidID(c)
	}

	status, body := s.bookBody(c, id)
	return c.JSONBlob(status, body)
}

func (s *Server) handleMetadata(c echo.Context) error {
	id, ok := s.bindID(c)
	if !ok {
		return invalidID(c)
	}

	ctx := c.Request().Context()
	status, body := s.cached("metadata", id, s.cfg.Cache.BookTTL, func() (int, any) {
		meta, err := s.svc.FetchMetadata(ctx, id)
		if err != nil {
			return s.failure(id, err)
		}
		return http.StatusOK, meta
	})
	return c.JSONBlob(status, body)
}

func (s *Server) handleAnalyze(c echo.Context) error {
	id, ok := s.bindID(c)
	if !ok {
		return invalidID(c)
	}

	status, body := s.analysisBody(c, id)
	return c.JSONBlob(status, body)
}

func (s *Server) handleStats(c echo.Context) error {
	id, ok := s.bindID(c)
	if !ok {
		return invalidID(c)
	}

	status, body := s.analysisBody(c, id)
	if status != http.StatusOK {
		return c.JSONBlob(status, body)
	}

	var g model.Graph
	if err := json.Unmarshal(body, &g); err != nil {
		s.logger.Error("cached analysis is unreadable", zap.String("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to read analysis"})
	}

	return c.JSON(http.StatusOK, model.StatsReport{ID: id, Characters: graph.DeriveStats(&g)})
}

// bookBody returns the /book response for id, through the cache.
func (s *Server) bookBody(c echo.Context, id string) (int, []byte) {
	ctx := c.Request().Context()
	return s.cached("book", id, s.cfg.Cache.BookTTL, func() (int, any) {
		book, err := s.svc.FetchBook(ctx, id)
		if err != nil {
			return s.failure(id, err)
		}
		return http.StatusOK, bookResponse{Content: book.Content}
	})
}

// analysisBody returns the /analyze response for id. The book text comes
// from the same cache entry /book uses.
func (s *Server) analysisBody(c echo.Context, id string) (int, []byte) {
	ctx := c.Request().Context()
	return s.cached("analyze", id, s.cfg.Cache.AnalysisTTL, func() (int, any) {
		status, raw := s.bookBody(c, id)
		if status != http.StatusOK {
			return status, json.RawMessage(raw)
		}

		var book bookResponse
		if err := json.Unmarshal(raw, &book); err != nil {
			return http.StatusInternalServerError, errorResponse{Error: "Failed to read book"}
		}

		g, err := s.svc.AnalyzeText(ctx, book.Content)
		if err != nil {
			return s.failure(id, err)
		}
		return http.StatusOK, g
	})
}

// failure maps a service error to a status and error body.
func (s *Server) failure(id string, err error) (int, any) {
	var fe *pipeline.FetchError
	switch {
	case errors.As(err, &fe):
		return http.StatusNotFound, errorResponse{Error: "Failed to fetch book: " + err.Error()}
	case errors.Is(err, pipeline.ErrNoAnalyzer):
		return http.StatusServiceUnavailable, errorResponse{Error: "Analysis unavailable: " + err.Error()}
	default:
		s.logger.Error("analysis failed", zap.String("id", id), zap.Error(err))
		return http.StatusBadGateway, errorResponse{Error: "Analysis failed: " + err.Error()}
	}
}
