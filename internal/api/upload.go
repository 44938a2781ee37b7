// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/record"
)

// maxMultipartMemory bounds the in-memory part buffer; larger parts spill to
// disk inside net/http before the pipeline ever sees them.
const maxMultipartMemory = 8 << 20

var uploadFailedSuggestions = []string{
	"Try uploading again",
	"Check your network connection",
	"Contact support if the problem persists",
}

type uploadResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Specs any    `json:"specs"`
}

// handleUpload accepts a multipart video upload, runs the pipeline and
// persists the outcome. Authentication is optional: a bad token is logged and
// the upload proceeds anonymously.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	userID := s.currentUser(r)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "No file provided",
			[]string{"Send the video in the multipart 'file' field"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided",
			[]string{"Send the video in the multipart 'file' field"})
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		writeError(w, http.StatusBadRequest, "Invalid file type: "+contentType,
			[]string{"Only video files are accepted"})
		return
	}

	res := s.pipeline.Process(ctx, file, header.Filename, contentType, userID)

	videoID := uuid.New().String()
	rec := record.Record{
		ID:          videoID,
		Filename:    header.Filename,
		URL:         res.URL,
		CreatedAt:   time.Now().UTC(),
		Specs:       res.Specs,
		State:       record.StateFailed,
		Error:       res.Error,
		StoragePath: res.StoragePath,
	}
	if res.Success {
		rec.State = record.StateCompleted
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		// The blob is already durable on success; losing the record row is an
		// operator problem, not a client error.
		logger.Error().Err(err).
			Str(log.FieldVideoID, videoID).
			Str(log.FieldUserID, userID).
			Msg("failed to persist video record")
	}

	switch {
	case res.Success:
		writeJSON(w, http.StatusOK, uploadResponse{ID: videoID, URL: res.URL, Specs: res.Specs})
	case res.Rejected:
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:       res.Error,
			Specs:       res.Specs,
			Suggestions: res.Suggestions,
		})
	default:
		logger.Error().
			Str(log.FieldVideoID, videoID).
			Str("cause", res.Error).
			Msg("upload failed")
		writeError(w, http.StatusInternalServerError, "Upload failed", uploadFailedSuggestions)
	}
}
