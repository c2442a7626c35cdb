// Package server exposes the aggregation layer as a read-only JSON API for a
// dashboard front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/pable/go-scrim-metrics/internal/aggregator"
	"github.com/pable/go-scrim-metrics/internal/config"
	"github.com/pable/go-scrim-metrics/internal/model"
)

// Dataset is everything the views read. It is loaded once and never
// modified; every request aggregates over it afresh.
type Dataset struct {
	Scores   *model.CleanedTable
	Roster   []model.RosterRow
	Players  []model.PlayerRow
	Warnings []string
}

// Server serves the scrim views.
type Server struct {
	data     *Dataset
	top      int
	logger   *slog.Logger
	validate *validator.Validate
}

// New creates a server over data. top bounds the composition ranking when a
// request does not ask for a size.
func New(data *Dataset, top int, logger *slog.Logger) *Server {
	if data.Scores == nil {
		data.Scores = &model.CleanedTable{}
	}
	if top <= 0 {
		top = aggregator.DefaultTopCompositions
	}
	return &Server{
		data:     data,
		top:      top,
		logger:   logger.With(slog.String("component", "server")),
		validate: validator.New(),
	}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", s.getHealth)
		r.Get("/meta", s.getMeta)
		r.Get("/maps", s.getMaps)
		r.Get("/rounds", s.getRounds)
		r.Get("/compositions", s.getCompositions)
		r.Get("/agents", s.getAgents)
		r.Get("/benchmarks", s.getBenchmarks)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx := context.Background()
	if cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, cfg.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

// statusFor maps aggregation errors to HTTP statuses.
func statusFor(err error) int {
	var missing *model.MissingColumnWarning
	switch {
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, aggregator.ErrDateOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
