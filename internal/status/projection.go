// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package status maps persisted video records to client-facing status and
// metadata responses.
package status

import (
	"time"

	"github.com/ManuGH/clipd/internal/probe"
	"github.com/ManuGH/clipd/internal/record"
)

// failedSuggestions is attached to every failed record regardless of the
// original validation error kind. The status layer deliberately does not
// re-derive typed errors from the stored message.
var failedSuggestions = []string{
	"Try uploading the video again",
	"Check if the video meets requirements",
	"The video may be corrupted",
}

// Response is the client-facing processing status of one video.
type Response struct {
	ID          string       `json:"id"`
	State       record.State `json:"state"`
	Progress    *float64     `json:"progress,omitempty"`
	Error       string       `json:"error,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
}

// Project maps a record to its status response.
func Project(rec record.Record) Response {
	resp := Response{
		ID:       rec.ID,
		State:    rec.State,
		Progress: rec.Progress,
	}
	if rec.State == record.StateFailed {
		resp.Error = rec.Error
		resp.Suggestions = failedSuggestions
	}
	return resp
}

// StorageInfo describes where a stored video lives.
type StorageInfo struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
}

// Metadata is the client-facing detail view of one stored video.
type Metadata struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	URL         string            `json:"url"`
	CreatedAt   string            `json:"created_at"`
	Specs       *probe.VideoSpecs `json:"specs,omitempty"`
	StorageInfo StorageInfo       `json:"storage_info"`
}

// ProjectMetadata maps a record to its metadata response.
func ProjectMetadata(rec record.Record, bucket string) Metadata {
	return Metadata{
		ID:        rec.ID,
		Filename:  rec.Filename,
		URL:       rec.URL,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		Specs:     rec.Specs,
		StorageInfo: StorageInfo{
			Bucket:    bucket,
			Path:      rec.StoragePath,
			PublicURL: rec.URL,
		},
	}
}
