// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"
	"strings"

	"github.com/ManuGH/clipd/internal/log"
)

// currentUser resolves the optional bearer token to a user ID. Every failure
// path returns "" so the upload proceeds anonymously.
func (s *Server) currentUser(r *http.Request) string {
	if s.verifier == nil {
		return ""
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return ""
	}

	userID, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Msg("auth failed")
		return ""
	}
	return userID
}
