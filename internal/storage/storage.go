// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package storage provides the durable blob store behind the upload
// pipeline: an S3 implementation plus a retrying wrapper that owns the
// attempt/backoff/cleanup contract.
package storage

import (
	"context"
	"fmt"
)

// BlobStore stores local files as durable public blobs.
type BlobStore interface {
	// Store uploads the file at localPath under key and returns its public URL.
	Store(ctx context.Context, localPath, key, contentType string, metadata map[string]string) (string, error)
	// Delete removes the blob at key. Used for partial-artifact cleanup.
	Delete(ctx context.Context, key string) error
}

// StorageError reports a store failure after all retry attempts were
// exhausted. Callers can distinguish "your video was invalid" from "we could
// not save your valid video" by matching this type.
type StorageError struct {
	Attempts int
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to store video after %d attempts: %v", e.Attempts, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
