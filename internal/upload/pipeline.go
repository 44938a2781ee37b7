// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package upload orchestrates one video upload: spool the client bytes to a
// scoped temp file, validate locally, and only then hand off to durable
// storage. Invalid content never reaches the store.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/uuid"

	"github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/metrics"
	"github.com/ManuGH/clipd/internal/probe"
	"github.com/ManuGH/clipd/internal/storage"
	"github.com/ManuGH/clipd/internal/validate"
)

// Validator is the slice of the policy validator the pipeline needs.
type Validator interface {
	Validate(ctx context.Context, path string) (probe.VideoSpecs, error)
}

// Result is the outcome of one upload attempt. Invariant:
// Success == true iff URL != "" and Error == "".
type Result struct {
	Success       bool              `json:"success"`
	URL           string            `json:"url,omitempty"`
	Error         string            `json:"error,omitempty"`
	Specs         *probe.VideoSpecs `json:"specs,omitempty"`
	Suggestions   []string          `json:"suggestions,omitempty"`
	StoragePath   string            `json:"-"`
	StorageFailed bool              `json:"-"`
	Rejected      bool              `json:"-"`
}

// Pipeline runs the receive → validate → store flow for uploads.
type Pipeline struct {
	validator Validator
	store     storage.BlobStore
	keyPrefix string
}

// New creates a Pipeline. keyPrefix namespaces blob keys (e.g. "videos").
func New(validator Validator, store storage.BlobStore, keyPrefix string) *Pipeline {
	if keyPrefix == "" {
		keyPrefix = "videos"
	}
	return &Pipeline{validator: validator, store: store, keyPrefix: keyPrefix}
}

var systemSuggestions = []string{
	"Ensure the video file is not corrupted",
	"Try re-recording or converting the video",
	"Check if your device supports the required format",
}

func systemFailure(cause error) Result {
	metrics.IncUpload("failed")
	return Result{Success: false, Error: fmt.Sprintf("Processing failed: %v", cause), Suggestions: systemSuggestions}
}

// Process drains r into a temp file, validates it, and stores it when valid.
// It never panics or returns an error to its caller: every failure mode is
// folded into the Result. The temp file is removed on every exit path.
func (p *Pipeline) Process(ctx context.Context, r io.Reader, filename, contentType, userID string) (res Result) {
	logger := log.WithComponentFromContext(ctx, "upload")

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Interface("panic_value", rec).
				Str(log.FieldPath, filename).
				Msg("upload pipeline panicked")
			res = systemFailure(fmt.Errorf("%v", rec))
		}
	}()

	tmp, err := os.CreateTemp("", "clipd-upload-*")
	if err != nil {
		return systemFailure(err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// Unconditional cleanup; a failed remove must never replace the
		// primary result.
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str(log.FieldPath, tmpPath).Msg("temp file cleanup failed")
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return systemFailure(err)
	}
	if err := tmp.Close(); err != nil {
		return systemFailure(err)
	}

	specs, err := p.validator.Validate(ctx, tmpPath)
	if err != nil {
		var re *validate.RuleError
		if errors.As(err, &re) {
			metrics.IncUpload("rejected")
			return Result{
				Success:     false,
				Rejected:    true,
				Error:       re.Message,
				Specs:       re.Specs,
				Suggestions: re.Suggestions(),
			}
		}
		return systemFailure(err)
	}

	key := p.blobKey(filename)
	metadata := map[string]string{"filename": filename}
	if userID != "" {
		metadata["user_id"] = userID
	}
	if specsJSON, err := json.Marshal(specs); err == nil {
		metadata["specs"] = string(specsJSON)
	}

	url, err := p.store.Store(ctx, tmpPath, key, contentType, metadata)
	if err != nil {
		metrics.IncUpload("failed")
		var se *storage.StorageError
		if errors.As(err, &se) {
			logger.Error().Err(err).Str(log.FieldKey, key).Msg("durable store exhausted retries")
			return Result{
				Success:       false,
				Error:         fmt.Sprintf("Failed to store video: %v", se.Err),
				Specs:         &specs,
				Suggestions:   systemSuggestions,
				StorageFailed: true,
			}
		}
		return Result{Success: false, Error: fmt.Sprintf("Processing failed: %v", err), Specs: &specs, Suggestions: systemSuggestions}
	}

	logger.Info().
		Str(log.FieldKey, key).
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", specs.Width, specs.Height)).
		Float64(log.FieldFPS, specs.FPS).
		Msg("upload accepted")

	metrics.IncUpload("accepted")
	return Result{Success: true, URL: url, Specs: &specs, StoragePath: key}
}

// blobKey builds a collision-free key while keeping the original filename
// visible for operators.
func (p *Pipeline) blobKey(filename string) string {
	base := path.Base(filename)
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%s/%s", p.keyPrefix, uuid.New().String(), base)
}
