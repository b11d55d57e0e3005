// Package api exposes the generation pipeline over HTTP for serve mode.
//
// The surface is deliberately small: one endpoint to run the pipeline and a
// health probe. Requests reuse the same Options struct the CLI builds, so
// both entry points share validation and defaults.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/rulesmith/rulesmith/pkg/errors"
	"github.com/rulesmith/rulesmith/pkg/pipeline"
)

// Generator runs the pipeline for one request. *pipeline.Runner satisfies it.
type Generator interface {
	Execute(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

// Server serves the generation API.
type Server struct {
	generator Generator
	log       *log.Logger
	router    chi.Router
}

// NewServer creates a Server around a generator. A nil logger falls back to
// log.Default().
func NewServer(generator Generator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{generator: generator, log: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/v1/plugins", s.handleGenerate)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// generateResponse is the success payload for plugin generation.
type generateResponse struct {
	Outcome   string           `json:"outcome"`
	Found     bool             `json:"found"`
	PackageID string           `json:"package_id"`
	Version   string           `json:"version"`
	Result    *pipeline.Result `json:"result"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.generator.Execute(r.Context(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Code.IsClientError() {
			status = http.StatusBadRequest
		}
		s.log.Error("generation failed", "package", opts.PackageID, "err", err)
		writeError(w, status, err.Error())
		return
	}

	status := http.StatusOK
	if !result.Found() {
		status = http.StatusNotFound
	}
	writeJSON(w, status, generateResponse{
		Outcome:   result.Outcome.String(),
		Found:     result.Found(),
		PackageID: opts.PackageID,
		Version:   opts.Version,
		Result:    result,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
