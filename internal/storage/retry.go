// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package storage

import (
	"context"
	"time"

	"github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/metrics"
)

// Retrier wraps a BlobStore with the retry contract callers depend on:
// at most maxAttempts tries, each bounded by attemptTimeout, a fixed backoff
// between attempts, and a best-effort delete of any partial artifact once the
// final attempt fails. Callers only ever see success or a *StorageError.
type Retrier struct {
	store          BlobStore
	maxAttempts    int
	attemptTimeout time.Duration
	backoff        time.Duration
	sleep          func(time.Duration) // injectable for tests
}

// NewRetrier wraps store. maxAttempts < 1 is clamped to 1.
func NewRetrier(store BlobStore, maxAttempts int, attemptTimeout, backoff time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{
		store:          store,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		backoff:        backoff,
		sleep:          time.Sleep,
	}
}

// Store attempts the underlying store until it succeeds or attempts run out.
func (r *Retrier) Store(ctx context.Context, localPath, key, contentType string, metadata map[string]string) (string, error) {
	logger := log.WithComponentFromContext(ctx, "storage-retry")

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		url, err := r.storeOnce(ctx, localPath, key, contentType, metadata)
		if err == nil {
			metrics.IncStorageAttempt("ok")
			return url, nil
		}
		metrics.IncStorageAttempt("error")
		lastErr = err
		logger.Warn().
			Err(err).
			Int(log.FieldAttempt, attempt).
			Str(log.FieldKey, key).
			Msg("store attempt failed")

		if attempt < r.maxAttempts {
			r.sleep(r.backoff)
		}
	}

	// Final attempt failed: try to remove whatever partial object the last
	// attempt may have left behind, then surface the typed error.
	if err := r.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn().Err(err).Str(log.FieldKey, key).Msg("partial artifact cleanup failed")
	}
	return "", &StorageError{Attempts: r.maxAttempts, Err: lastErr}
}

// Delete removes the blob at key via the underlying store.
func (r *Retrier) Delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

func (r *Retrier) storeOnce(ctx context.Context, localPath, key, contentType string, metadata map[string]string) (string, error) {
	if r.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()
	}
	return r.store.Store(ctx, localPath, key, contentType, metadata)
}
