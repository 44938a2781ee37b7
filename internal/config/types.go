// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads application configuration with precedence
// ENV > file > defaults.
package config

import (
	"fmt"
	"time"
)

// AppConfig is the fully merged runtime configuration.
type AppConfig struct {
	ListenAddr string
	DataDir    string
	DBPath     string

	LogLevel   string
	LogService string
	Version    string

	Probe   ProbeConfig
	Policy  PolicyConfig
	Storage StorageConfig
	Auth    AuthConfig

	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int
}

// ProbeConfig bounds the ffprobe invocation.
type ProbeConfig struct {
	FFprobeBin    string
	Timeout       time.Duration
	MaxConcurrent int64
}

// PolicyConfig holds the platform video acceptance policy. The defaults are
// the published client contract; changing them changes what clients may upload.
type PolicyConfig struct {
	MaxSizeBytes int64
	Width        int
	Height       int
	MinFPS       float64
	MaxFPS       float64
	MaxDuration  float64 // seconds
	ColorSpace   string
}

// StorageConfig configures the durable blob store and its retry contract.
type StorageConfig struct {
	Bucket         string
	Region         string
	Prefix         string
	PublicBaseURL  string // optional override for public URLs
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryBackoff   time.Duration
}

// AuthConfig points at the external identity provider used to resolve bearer
// tokens. An empty VerifyURL disables authentication and every upload is
// anonymous.
type AuthConfig struct {
	VerifyURL string
	Timeout   time.Duration
}

// Validate checks invariants after merging all sources.
func (c *AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket must not be empty")
	}
	if c.Storage.MaxAttempts < 1 {
		return fmt.Errorf("storage max attempts must be >= 1, got %d", c.Storage.MaxAttempts)
	}
	if c.Probe.MaxConcurrent < 1 {
		return fmt.Errorf("probe max concurrent must be >= 1, got %d", c.Probe.MaxConcurrent)
	}
	if c.Policy.MaxSizeBytes <= 0 {
		return fmt.Errorf("policy max size must be positive, got %d", c.Policy.MaxSizeBytes)
	}
	if c.Policy.Width <= 0 || c.Policy.Height <= 0 {
		return fmt.Errorf("policy resolution must be positive, got %dx%d", c.Policy.Width, c.Policy.Height)
	}
	if c.Policy.MinFPS > c.Policy.MaxFPS {
		return fmt.Errorf("policy min fps %v exceeds max fps %v", c.Policy.MinFPS, c.Policy.MaxFPS)
	}
	if c.Policy.MaxDuration <= 0 {
		return fmt.Errorf("policy max duration must be positive, got %v", c.Policy.MaxDuration)
	}
	return nil
}
