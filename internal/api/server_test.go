// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/clipd/internal/config"
	"github.com/ManuGH/clipd/internal/probe"
	"github.com/ManuGH/clipd/internal/record"
	"github.com/ManuGH/clipd/internal/upload"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePipeline struct {
	mu       sync.Mutex
	result   upload.Result
	calls    int
	userID   string
	filename string
	ctype    string
}

func (f *fakePipeline) Process(_ context.Context, r io.Reader, filename, contentType, userID string) upload.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.filename = filename
	f.ctype = contentType
	f.userID = userID
	_, _ = io.Copy(io.Discard, r)
	return f.result
}

type fakeRecords struct {
	mu       sync.Mutex
	inserted []record.Record
	getErr   error
	byID     map[string]record.Record
}

func (f *fakeRecords) Insert(_ context.Context, rec record.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return record.Record{}, f.getErr
	}
	rec, ok := f.byID[id]
	if !ok {
		return record.Record{}, record.ErrNotFound
	}
	return rec, nil
}

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (string, error) {
	return f.userID, f.err
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		ListenAddr: ":0",
		Version:    "test",
		Storage:    config.StorageConfig{Bucket: "clips-test", MaxAttempts: 1},
		Probe:      config.ProbeConfig{MaxConcurrent: 1},
		Policy: config.PolicyConfig{
			MaxSizeBytes: 6291456,
			Width:        720, Height: 1280,
			MinFPS: 29.97, MaxFPS: 30,
			MaxDuration: 60,
			ColorSpace:  "bt709",
		},
	}
}

func newTestServer(t *testing.T, pipe *fakePipeline, recs *fakeRecords, verifier TokenVerifier) http.Handler {
	t.Helper()
	if recs.byID == nil {
		recs.byID = map[string]record.Record{}
	}
	return New(testConfig(), pipe, recs, verifier).Router()
}

func multipartBody(t *testing.T, field, filename, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestUploadSuccess(t *testing.T) {
	specs := &probe.VideoSpecs{Width: 720, Height: 1280, FPS: 29.97, Duration: 30, ColorSpace: "bt709"}
	pipe := &fakePipeline{result: upload.Result{
		Success:     true,
		URL:         "https://clips-test.s3.eu-central-1.amazonaws.com/videos/abc/clip.mp4",
		Specs:       specs,
		StoragePath: "videos/abc/clip.mp4",
	}}
	recs := &fakeRecords{}
	h := newTestServer(t, pipe, recs, nil)

	buf, ctype := multipartBody(t, "file", "clip.mp4", "video/mp4", []byte("mp4 bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, pipe.result.URL, body["url"])
	assert.NotEmpty(t, body["id"])
	assert.NotNil(t, body["specs"])

	assert.Equal(t, "clip.mp4", pipe.filename)
	assert.Equal(t, "video/mp4", pipe.ctype)

	require.Len(t, recs.inserted, 1)
	rec := recs.inserted[0]
	assert.Equal(t, record.StateCompleted, rec.State)
	assert.Equal(t, body["id"], rec.ID)
	assert.Equal(t, pipe.result.URL, rec.URL)
	assert.Equal(t, "videos/abc/clip.mp4", rec.StoragePath)
}

func TestUploadRejected(t *testing.T) {
	specs := &probe.VideoSpecs{Width: 1920, Height: 1080, FPS: 29.97, Duration: 30, ColorSpace: "bt709"}
	pipe := &fakePipeline{result: upload.Result{
		Rejected:    true,
		Error:       "Invalid resolution: 1920x1080",
		Specs:       specs,
		Suggestions: []string{"Video must be exactly 720x1280 (portrait)", "Use your phone's portrait mode", "Check your export settings"},
	}}
	recs := &fakeRecords{}
	h := newTestServer(t, pipe, recs, nil)

	buf, ctype := multipartBody(t, "file", "wide.mp4", "video/mp4", []byte("mp4 bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Invalid resolution: 1920x1080", body["error"])
	assert.NotNil(t, body["specs"])
	assert.Len(t, body["suggestions"], 3)

	require.Len(t, recs.inserted, 1)
	assert.Equal(t, record.StateFailed, recs.inserted[0].State)
	assert.Equal(t, "Invalid resolution: 1920x1080", recs.inserted[0].Error)
}

func TestUploadSystemFailure(t *testing.T) {
	pipe := &fakePipeline{result: upload.Result{
		Error:       "Processing failed: ffprobe missing",
		Suggestions: []string{"Ensure the video file is not corrupted"},
	}}
	recs := &fakeRecords{}
	h := newTestServer(t, pipe, recs, nil)

	buf, ctype := multipartBody(t, "file", "clip.mp4", "video/mp4", []byte("mp4 bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Upload failed", body["error"])
	assert.ElementsMatch(t, []any{
		"Try uploading again",
		"Check your network connection",
		"Contact support if the problem persists",
	}, body["suggestions"])

	require.Len(t, recs.inserted, 1)
	assert.Equal(t, record.StateFailed, recs.inserted[0].State)
}

func TestUploadRejectsNonVideoContentType(t *testing.T) {
	pipe := &fakePipeline{}
	recs := &fakeRecords{}
	h := newTestServer(t, pipe, recs, nil)

	buf, ctype := multipartBody(t, "file", "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Invalid file type: text/plain", body["error"])
	assert.Equal(t, []any{"Only video files are accepted"}, body["suggestions"])

	assert.Equal(t, 0, pipe.calls)
	assert.Empty(t, recs.inserted)
}

func TestUploadMissingFileField(t *testing.T) {
	pipe := &fakePipeline{}
	recs := &fakeRecords{}
	h := newTestServer(t, pipe, recs, nil)

	buf, ctype := multipartBody(t, "document", "clip.mp4", "video/mp4", []byte("mp4 bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No file provided", decodeBody(t, rr)["error"])
	assert.Equal(t, 0, pipe.calls)
}

func TestUploadBearerToken(t *testing.T) {
	cases := []struct {
		name       string
		verifier   *fakeVerifier
		authHeader string
		wantUser   string
	}{
		{"verified", &fakeVerifier{userID: "user-42"}, "Bearer good-token", "user-42"},
		{"verify fails, anonymous", &fakeVerifier{err: errors.New("expired")}, "Bearer bad-token", ""},
		{"no header", &fakeVerifier{userID: "user-42"}, "", ""},
		{"malformed header", &fakeVerifier{userID: "user-42"}, "Token abc", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pipe := &fakePipeline{result: upload.Result{Success: true, URL: "https://x/y"}}
			recs := &fakeRecords{}
			h := newTestServer(t, pipe, recs, tc.verifier)

			buf, ctype := multipartBody(t, "file", "clip.mp4", "video/mp4", []byte("mp4 bytes"))
			req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
			req.Header.Set("Content-Type", ctype)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tc.wantUser, pipe.userID)
		})
	}
}

func TestStatusCompleted(t *testing.T) {
	recs := &fakeRecords{byID: map[string]record.Record{
		"vid-1": {
			ID:        "vid-1",
			Filename:  "clip.mp4",
			URL:       "https://x/y",
			CreatedAt: time.Now().UTC(),
			State:     record.StateCompleted,
		},
	}}
	h := newTestServer(t, &fakePipeline{}, recs, nil)

	req := httptest.NewRequest(http.MethodGet, "/videos/vid-1/status", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "vid-1", body["id"])
	assert.Equal(t, "completed", body["state"])
	_, hasSuggestions := body["suggestions"]
	assert.False(t, hasSuggestions)
}

func TestStatusFailedAttachesSuggestions(t *testing.T) {
	recs := &fakeRecords{byID: map[string]record.Record{
		"vid-2": {ID: "vid-2", State: record.StateFailed, Error: "Invalid frame rate: 24.0"},
	}}
	h := newTestServer(t, &fakePipeline{}, recs, nil)

	req := httptest.NewRequest(http.MethodGet, "/videos/vid-2/status", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "failed", body["state"])
	assert.Equal(t, "Invalid frame rate: 24.0", body["error"])
	assert.Len(t, body["suggestions"], 3)
}

func TestStatusNotFound(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, &fakeRecords{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/videos/nope/status", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Video not found", body["error"])
	assert.Equal(t, []any{"Check the video ID", "The video may have been deleted"}, body["suggestions"])
}

func TestStatusStoreError(t *testing.T) {
	recs := &fakeRecords{getErr: errors.New("db locked")}
	h := newTestServer(t, &fakePipeline{}, recs, nil)

	req := httptest.NewRequest(http.MethodGet, "/videos/vid-1/status", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to get video status", decodeBody(t, rr)["error"])
}

func TestMetadata(t *testing.T) {
	specs := &probe.VideoSpecs{Width: 720, Height: 1280, FPS: 30, Duration: 12, ColorSpace: "bt709"}
	recs := &fakeRecords{byID: map[string]record.Record{
		"vid-3": {
			ID:          "vid-3",
			Filename:    "clip.mp4",
			URL:         "https://clips-test.s3.eu-central-1.amazonaws.com/videos/abc/clip.mp4",
			CreatedAt:   time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
			Specs:       specs,
			State:       record.StateCompleted,
			StoragePath: "videos/abc/clip.mp4",
		},
	}}
	h := newTestServer(t, &fakePipeline{}, recs, nil)

	req := httptest.NewRequest(http.MethodGet, "/videos/vid-3/metadata", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "vid-3", body["id"])
	assert.Equal(t, "clip.mp4", body["filename"])
	assert.Equal(t, "2025-08-01T12:00:00Z", body["created_at"])

	info, ok := body["storage_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "clips-test", info["bucket"])
	assert.Equal(t, "videos/abc/clip.mp4", info["path"])
}

func TestMetadataNotFound(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, &fakeRecords{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/videos/nope/metadata", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Video not found", decodeBody(t, rr)["error"])
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, &fakeRecords{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, &fakeRecords{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-abc", rr.Header().Get("X-Request-Id"))
}
