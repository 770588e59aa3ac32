// Package server exposes research submission and results over a JSON API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/database"
	"github.com/TobiSchelling/orgscout/internal/logging"
)

var md = goldmark.New()

// Store reads research results.
type Store interface {
	GetReport(ctx context.Context, id string) (*database.Report, error)
	ListResearch(ctx context.Context, limit int) ([]database.ResearchQuery, error)
}

// Submitter creates and schedules research queries.
type Submitter interface {
	Submit(ctx context.Context, query string) (*database.ResearchQuery, error)
}

// Server is the HTTP API server.
type Server struct {
	store     Store
	submitter Submitter
	validate  *validator.Validate
	mux       *http.ServeMux
	logger    *zap.Logger
}

// New creates a new Server.
func New(store Store, submitter Submitter, logger *zap.Logger) *Server {
	s := &Server{
		store:     store,
		submitter: submitter,
		validate:  validator.New(),
		mux:       http.NewServeMux(),
		logger:    logging.OrNop(logger),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/research", s.handleSubmit)
	s.mux.HandleFunc("GET /api/research", s.handleList)
	s.mux.HandleFunc("GET /api/research/{id}", s.handleGet)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// storeError maps store sentinel errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, "research not found")
	case errors.Is(err, database.ErrInvalidTransition):
		s.errorResponse(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	logger.Info("server listening", zap.String("url", "http://"+addr))
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
