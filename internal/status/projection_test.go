// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/clipd/internal/probe"
	"github.com/ManuGH/clipd/internal/record"
)

func TestProjectCompleted(t *testing.T) {
	resp := Project(record.Record{ID: "v1", State: record.StateCompleted})
	assert.Equal(t, "v1", resp.ID)
	assert.Equal(t, record.StateCompleted, resp.State)
	assert.Empty(t, resp.Error)
	assert.Nil(t, resp.Suggestions)
}

func TestProjectProcessingKeepsProgress(t *testing.T) {
	progress := 61.5
	resp := Project(record.Record{ID: "v2", State: record.StateProcessing, Progress: &progress})
	assert.Equal(t, record.StateProcessing, resp.State)
	assert.Equal(t, &progress, resp.Progress)
	assert.Nil(t, resp.Suggestions)
}

func TestProjectFailedAttachesFixedSuggestions(t *testing.T) {
	// The suggestion trio is fixed regardless of which rule originally failed.
	for _, errMsg := range []string{"Invalid resolution: 1920x1080", "Video too long: 75s", "System error"} {
		resp := Project(record.Record{ID: "v3", State: record.StateFailed, Error: errMsg})
		assert.Equal(t, errMsg, resp.Error)
		assert.Equal(t, []string{
			"Try uploading the video again",
			"Check if the video meets requirements",
			"The video may be corrupted",
		}, resp.Suggestions)
	}
}

func TestProjectMetadata(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := record.Record{
		ID:          "v4",
		Filename:    "clip.mp4",
		URL:         "https://clips.example.com/videos/v4/clip.mp4",
		CreatedAt:   created,
		Specs:       &probe.VideoSpecs{Width: 720, Height: 1280},
		State:       record.StateCompleted,
		StoragePath: "videos/v4/clip.mp4",
	}

	meta := ProjectMetadata(rec, "clips-bucket")
	assert.Equal(t, "v4", meta.ID)
	assert.Equal(t, "2025-06-01T12:00:00Z", meta.CreatedAt)
	assert.Equal(t, "clips-bucket", meta.StorageInfo.Bucket)
	assert.Equal(t, "videos/v4/clip.mp4", meta.StorageInfo.Path)
	assert.Equal(t, rec.URL, meta.StorageInfo.PublicURL)
}
