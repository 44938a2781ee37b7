// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/record"
	"github.com/ManuGH/clipd/internal/status"
)

var (
	notFoundSuggestions   = []string{"Check the video ID", "The video may have been deleted"}
	lookupFailSuggestions = []string{"Try again later", "The service may be experiencing issues"}
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found", notFoundSuggestions)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldVideoID, id).Msg("status lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to get video status", lookupFailSuggestions)
		return
	}

	writeJSON(w, http.StatusOK, status.Project(rec))
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Video not found", notFoundSuggestions)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldVideoID, id).Msg("metadata lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to get video metadata", lookupFailSuggestions)
		return
	}

	writeJSON(w, http.StatusOK, status.ProjectMetadata(rec, s.cfg.Storage.Bucket))
}
