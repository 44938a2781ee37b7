// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/clipd/internal/api"
	"github.com/ManuGH/clipd/internal/auth"
	"github.com/ManuGH/clipd/internal/config"
	cliplog "github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/probe"
	"github.com/ManuGH/clipd/internal/record"
	"github.com/ManuGH/clipd/internal/storage"
	"github.com/ManuGH/clipd/internal/upload"
	"github.com/ManuGH/clipd/internal/validate"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	cliplog.Configure(cliplog.Config{
		Level:   "info",
		Service: "clipd",
		Version: version,
	})
	logger := cliplog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Explicit --config wins; otherwise pick up ${CLIPD_DATA}/config.yaml when
	// it exists.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("CLIPD_DATA", "/var/lib/clipd"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(cliplog.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	cliplog.Configure(cliplog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str(cliplog.FieldPath, cfg.DataDir).Msg("failed to create data directory")
	}

	records, err := record.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str(cliplog.FieldPath, cfg.DBPath).Msg("failed to open record store")
	}
	defer func() {
		if err := records.Close(); err != nil {
			logger.Warn().Err(err).Msg("record store close failed")
		}
	}()

	s3store, err := storage.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(cliplog.FieldBucket, cfg.Storage.Bucket).
			Msg("failed to initialize blob store")
	}
	store := storage.NewRetrier(s3store, cfg.Storage.MaxAttempts, cfg.Storage.AttemptTimeout, cfg.Storage.RetryBackoff)

	prober := probe.New(cfg.Probe.FFprobeBin, cfg.Probe.Timeout, cfg.Probe.MaxConcurrent)
	validator := validate.New(cfg.Policy, prober)
	pipeline := upload.New(validator, store, cfg.Storage.Prefix)

	var verifier api.TokenVerifier
	if cfg.Auth.VerifyURL != "" {
		verifier = auth.New(cfg.Auth.VerifyURL, cfg.Auth.Timeout)
	}

	server := api.New(cfg, pipeline, records, verifier)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str(cliplog.FieldEvent, "server.listening").
			Str("addr", cfg.ListenAddr).
			Str(cliplog.FieldBucket, cfg.Storage.Bucket).
			Msg("clipd listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Str(cliplog.FieldEvent, "server.shutdown").Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
