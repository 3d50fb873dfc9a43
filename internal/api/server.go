// Package api provides the HTTP API for the media recommender.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
	"github.com/halcyonlabs/mediarec/internal/recommend"
	"github.com/halcyonlabs/mediarec/internal/sanitize"
)

// Recommender is the pipeline surface the API depends on.
type Recommender interface {
	Recommend(ctx context.Context, userQuery string) ([]*media.Record, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the recommendation pipeline over HTTP.
type Server struct {
	echo        *echo.Echo
	recommender Recommender
	logger      *logging.Logger
	config      *Config
}

// NewServer creates an HTTP server around the given recommender.
func NewServer(recommender Recommender, logger *logging.Logger, cfg *Config) (*Server, error) {
	if recommender == nil {
		return nil, fmt.Errorf("recommender cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Thread the request ID through the context so pipeline logs
			// correlate with the access log line.
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})

	s := &Server{
		echo:        e,
		recommender: recommender,
		logger:      logger,
		config:      cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/recommend", s.handleRecommend)
}

// RecommendRequest is the request body for POST /api/v1/recommend.
type RecommendRequest struct {
	Query string `json:"query"`
}

// MediaResponse is one recommended record.
type MediaResponse struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Summary     *string  `json:"summary,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Status      *string  `json:"status,omitempty"`
	StartDate   *string  `json:"start_date,omitempty"`
	ExternalURL *string  `json:"external_url,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Descriptors []string `json:"content_descriptors,omitempty"`
}

// RecommendResponse is the response body for POST /api/v1/recommend.
type RecommendResponse struct {
	Results []MediaResponse `json:"results"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleRecommend(c echo.Context) error {
	ctx := c.Request().Context()

	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	records, err := s.recommender.Recommend(ctx, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, sanitize.ErrEmptyQuery), errors.Is(err, sanitize.ErrQueryTooLong),
			errors.Is(err, sanitize.ErrQueryUnsafe):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, recommend.ErrMalformedResponse):
			s.logger.Error(ctx, "query understanding returned malformed output", zap.Error(err))
			return echo.NewHTTPError(http.StatusBadGateway, "upstream model returned an unusable response")
		default:
			s.logger.Error(ctx, "recommendation failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "recommendation failed")
		}
	}

	resp := RecommendResponse{Results: make([]MediaResponse, 0, len(records))}
	for _, rec := range records {
		resp.Results = append(resp.Results, toMediaResponse(rec))
	}
	return c.JSON(http.StatusOK, resp)
}

func toMediaResponse(rec *media.Record) MediaResponse {
	out := MediaResponse{
		ID:          rec.ID,
		Title:       rec.Title,
		Type:        string(rec.Type),
		Summary:     rec.Summary,
		Score:       rec.Score,
		ExternalURL: rec.ExternalURL,
		ImageURL:    rec.ImageURL,
	}
	if rec.Status != nil {
		status := string(*rec.Status)
		out.Status = &status
	}
	if rec.StartDate != nil {
		date := rec.StartDate.Format("2006-01-02")
		out.StartDate = &date
	}
	for _, d := range rec.Descriptors {
		out.Descriptors = append(out.Descriptors, d.Name)
	}
	return out
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
