// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package auth resolves bearer tokens against an external identity provider.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verifier calls a token introspection endpoint. The endpoint receives
// {"token": "..."} and answers 200 {"user_id": "..."} for valid tokens.
type Verifier struct {
	verifyURL string
	client    *http.Client
}

// New creates a Verifier. timeout bounds the whole introspection round trip.
func New(verifyURL string, timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Verifier{
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
}

// Verify resolves token to a user ID.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token introspection: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token introspection: status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&vr); err != nil {
		return "", fmt.Errorf("token introspection: decode: %w", err)
	}
	if vr.UserID == "" {
		return "", fmt.Errorf("token introspection: empty user id")
	}
	return vr.UserID, nil
}
