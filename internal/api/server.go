// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the upload, status and metadata HTTP surface.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/clipd/internal/api/middleware"
	"github.com/ManuGH/clipd/internal/config"
	"github.com/ManuGH/clipd/internal/record"
	"github.com/ManuGH/clipd/internal/upload"
)

// Processor runs the upload pipeline for one request.
type Processor interface {
	Process(ctx context.Context, r io.Reader, filename, contentType, userID string) upload.Result
}

// RecordStore is the slice of the record store the handlers need.
type RecordStore interface {
	Insert(ctx context.Context, rec record.Record) error
	Get(ctx context.Context, id string) (record.Record, error)
}

// TokenVerifier resolves a bearer token to a user ID. Implementations call an
// external identity provider; verification failures must not reject the
// upload, the request just proceeds anonymously.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Server wires the HTTP surface to the pipeline and record store.
type Server struct {
	cfg       config.AppConfig
	pipeline  Processor
	records   RecordStore
	verifier  TokenVerifier // nil disables authentication entirely
	startTime time.Time
}

// New creates a Server. verifier may be nil.
func New(cfg config.AppConfig, pipeline Processor, records RecordStore, verifier TokenVerifier) *Server {
	return &Server{
		cfg:       cfg,
		pipeline:  pipeline,
		records:   records,
		verifier:  verifier,
		startTime: time.Now(),
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	stack := middleware.StackConfig{
		EnableMetrics:    true,
		EnableLogging:    true,
		RateLimitEnabled: s.cfg.RateLimitEnabled,
		RateLimitRPM:     s.cfg.RateLimitRPM,
		RateLimitBurst:   s.cfg.RateLimitBurst,
	}

	r := middleware.NewRouter(stack)

	r.Group(func(r chi.Router) {
		r.Use(middleware.UploadRateLimit(stack))
		r.Post("/api/upload", s.handleUpload)
	})

	r.Get("/videos/{id}/status", s.handleStatus)
	r.Get("/videos/{id}/metadata", s.handleMetadata)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
