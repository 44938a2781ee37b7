// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	EnableMetrics bool
	EnableLogging bool

	// Rate limiting for upload endpoints, requests per minute per client IP.
	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r in a fixed order:
// Recoverer first so every downstream panic is contained, then RequestID so
// all later middleware and handlers log with correlation.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(RequestLogger)
	}
}

// UploadRateLimit returns a per-IP rate limiter for upload routes, or a no-op
// when disabled.
func UploadRateLimit(cfg StackConfig) func(http.Handler) http.Handler {
	if !cfg.RateLimitEnabled || cfg.RateLimitRPM <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limit := cfg.RateLimitRPM
	if cfg.RateLimitBurst > limit {
		limit = cfg.RateLimitBurst
	}
	return httprate.LimitByIP(limit, time.Minute)
}
