// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// fileConfig mirrors the YAML schema. Pointer fields distinguish "absent"
// from zero values so the file only overrides what it mentions.
type fileConfig struct {
	Listen   *string `yaml:"listen"`
	DataDir  *string `yaml:"data_dir"`
	DBPath   *string `yaml:"db_path"`
	LogLevel *string `yaml:"log_level"`

	Probe struct {
		FFprobeBin    *string `yaml:"ffprobe_bin"`
		Timeout       *string `yaml:"timeout"`
		MaxConcurrent *int64  `yaml:"max_concurrent"`
	} `yaml:"probe"`

	Policy struct {
		MaxSizeBytes *int64   `yaml:"max_size_bytes"`
		Width        *int     `yaml:"width"`
		Height       *int     `yaml:"height"`
		MinFPS       *float64 `yaml:"min_fps"`
		MaxFPS       *float64 `yaml:"max_fps"`
		MaxDuration  *float64 `yaml:"max_duration"`
		ColorSpace   *string  `yaml:"color_space"`
	} `yaml:"policy"`

	Storage struct {
		Bucket         *string `yaml:"bucket"`
		Region         *string `yaml:"region"`
		Prefix         *string `yaml:"prefix"`
		PublicBaseURL  *string `yaml:"public_base_url"`
		MaxAttempts    *int    `yaml:"max_attempts"`
		AttemptTimeout *string `yaml:"attempt_timeout"`
		RetryBackoff   *string `yaml:"retry_backoff"`
	} `yaml:"storage"`

	Auth struct {
		VerifyURL *string `yaml:"verify_url"`
		Timeout   *string `yaml:"timeout"`
	} `yaml:"auth"`

	RateLimit struct {
		Enabled *bool `yaml:"enabled"`
		RPM     *int  `yaml:"rpm"`
		Burst   *int  `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Load loads configuration in Strict Validated Order:
// defaults -> parse file (strict) -> apply env -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults(l.version)

	if l.configPath != "" {
		fileCfg, err := loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults(version string) AppConfig {
	return AppConfig{
		ListenAddr: ":8080",
		DataDir:    "/var/lib/clipd",
		DBPath:     "", // derived from DataDir when empty
		LogLevel:   "info",
		LogService: "clipd",
		Version:    version,
		Probe: ProbeConfig{
			FFprobeBin:    "ffprobe",
			Timeout:       10 * time.Second,
			MaxConcurrent: 4,
		},
		Policy: PolicyConfig{
			MaxSizeBytes: 6 * 1024 * 1024,
			Width:        720,
			Height:       1280,
			MinFPS:       29.97,
			MaxFPS:       30,
			MaxDuration:  60,
			ColorSpace:   "bt709",
		},
		Storage: StorageConfig{
			Bucket:         "",
			Region:         "us-east-1",
			Prefix:         "videos",
			MaxAttempts:    3,
			AttemptTimeout: 30 * time.Second,
			RetryBackoff:   time.Second,
		},
		Auth: AuthConfig{
			Timeout: 5 * time.Second,
		},
		RateLimitEnabled: true,
		RateLimitRPM:     60,
		RateLimitBurst:   10,
	}
}

func loadFile(path string) (*fileConfig, error) {
	ext := filepath.Ext(path)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config extension %q (want .yaml or .yml)", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &fc, nil
}

func mergeFileConfig(cfg *AppConfig, fc *fileConfig) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.ListenAddr, fc.Listen)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.LogLevel, fc.LogLevel)

	setString(&cfg.Probe.FFprobeBin, fc.Probe.FFprobeBin)
	if fc.Probe.Timeout != nil {
		d, err := time.ParseDuration(*fc.Probe.Timeout)
		if err != nil {
			return fmt.Errorf("probe.timeout: %w", err)
		}
		cfg.Probe.Timeout = d
	}
	if fc.Probe.MaxConcurrent != nil {
		cfg.Probe.MaxConcurrent = *fc.Probe.MaxConcurrent
	}

	if fc.Policy.MaxSizeBytes != nil {
		cfg.Policy.MaxSizeBytes = *fc.Policy.MaxSizeBytes
	}
	if fc.Policy.Width != nil {
		cfg.Policy.Width = *fc.Policy.Width
	}
	if fc.Policy.Height != nil {
		cfg.Policy.Height = *fc.Policy.Height
	}
	if fc.Policy.MinFPS != nil {
		cfg.Policy.MinFPS = *fc.Policy.MinFPS
	}
	if fc.Policy.MaxFPS != nil {
		cfg.Policy.MaxFPS = *fc.Policy.MaxFPS
	}
	if fc.Policy.MaxDuration != nil {
		cfg.Policy.MaxDuration = *fc.Policy.MaxDuration
	}
	setString(&cfg.Policy.ColorSpace, fc.Policy.ColorSpace)

	setString(&cfg.Storage.Bucket, fc.Storage.Bucket)
	setString(&cfg.Storage.Region, fc.Storage.Region)
	setString(&cfg.Storage.Prefix, fc.Storage.Prefix)
	setString(&cfg.Storage.PublicBaseURL, fc.Storage.PublicBaseURL)
	if fc.Storage.MaxAttempts != nil {
		cfg.Storage.MaxAttempts = *fc.Storage.MaxAttempts
	}
	if fc.Storage.AttemptTimeout != nil {
		d, err := time.ParseDuration(*fc.Storage.AttemptTimeout)
		if err != nil {
			return fmt.Errorf("storage.attempt_timeout: %w", err)
		}
		cfg.Storage.AttemptTimeout = d
	}
	if fc.Storage.RetryBackoff != nil {
		d, err := time.ParseDuration(*fc.Storage.RetryBackoff)
		if err != nil {
			return fmt.Errorf("storage.retry_backoff: %w", err)
		}
		cfg.Storage.RetryBackoff = d
	}

	setString(&cfg.Auth.VerifyURL, fc.Auth.VerifyURL)
	if fc.Auth.Timeout != nil {
		d, err := time.ParseDuration(*fc.Auth.Timeout)
		if err != nil {
			return fmt.Errorf("auth.timeout: %w", err)
		}
		cfg.Auth.Timeout = d
	}

	if fc.RateLimit.Enabled != nil {
		cfg.RateLimitEnabled = *fc.RateLimit.Enabled
	}
	if fc.RateLimit.RPM != nil {
		cfg.RateLimitRPM = *fc.RateLimit.RPM
	}
	if fc.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *fc.RateLimit.Burst
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString("CLIPD_LISTEN", cfg.ListenAddr)
	cfg.DataDir = ParseString("CLIPD_DATA", cfg.DataDir)
	cfg.DBPath = ParseString("CLIPD_DB_PATH", cfg.DBPath)
	cfg.LogLevel = ParseString("CLIPD_LOG_LEVEL", cfg.LogLevel)

	cfg.Probe.FFprobeBin = ParseString("CLIPD_FFPROBE_BIN", cfg.Probe.FFprobeBin)
	cfg.Probe.Timeout = ParseDuration("CLIPD_PROBE_TIMEOUT", cfg.Probe.Timeout)
	cfg.Probe.MaxConcurrent = ParseInt64("CLIPD_PROBE_MAX_CONCURRENT", cfg.Probe.MaxConcurrent)

	cfg.Policy.MaxSizeBytes = ParseInt64("CLIPD_MAX_SIZE_BYTES", cfg.Policy.MaxSizeBytes)
	cfg.Policy.Width = ParseInt("CLIPD_WIDTH", cfg.Policy.Width)
	cfg.Policy.Height = ParseInt("CLIPD_HEIGHT", cfg.Policy.Height)
	cfg.Policy.MinFPS = ParseFloat("CLIPD_MIN_FPS", cfg.Policy.MinFPS)
	cfg.Policy.MaxFPS = ParseFloat("CLIPD_MAX_FPS", cfg.Policy.MaxFPS)
	cfg.Policy.MaxDuration = ParseFloat("CLIPD_MAX_DURATION", cfg.Policy.MaxDuration)
	cfg.Policy.ColorSpace = ParseString("CLIPD_COLOR_SPACE", cfg.Policy.ColorSpace)

	cfg.Storage.Bucket = ParseString("CLIPD_STORAGE_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.Region = ParseString("CLIPD_STORAGE_REGION", cfg.Storage.Region)
	cfg.Storage.Prefix = ParseString("CLIPD_STORAGE_PREFIX", cfg.Storage.Prefix)
	cfg.Storage.PublicBaseURL = ParseString("CLIPD_STORAGE_PUBLIC_BASE_URL", cfg.Storage.PublicBaseURL)
	cfg.Storage.MaxAttempts = ParseInt("CLIPD_STORAGE_MAX_ATTEMPTS", cfg.Storage.MaxAttempts)
	cfg.Storage.AttemptTimeout = ParseDuration("CLIPD_STORAGE_ATTEMPT_TIMEOUT", cfg.Storage.AttemptTimeout)
	cfg.Storage.RetryBackoff = ParseDuration("CLIPD_STORAGE_RETRY_BACKOFF", cfg.Storage.RetryBackoff)

	cfg.Auth.VerifyURL = ParseString("CLIPD_AUTH_VERIFY_URL", cfg.Auth.VerifyURL)
	cfg.Auth.Timeout = ParseDuration("CLIPD_AUTH_TIMEOUT", cfg.Auth.Timeout)

	cfg.RateLimitEnabled = ParseBool("CLIPD_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = ParseInt("CLIPD_RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.RateLimitBurst = ParseInt("CLIPD_RATE_LIMIT_BURST", cfg.RateLimitBurst)

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "clipd.db")
	}
}
