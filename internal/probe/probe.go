// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package probe extracts container and stream metadata from video files
// on local disk via ffprobe, without decoding them.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/metrics"
)

// Typed probe failures. Anything that is not "the container has no video
// stream" is normalized to ErrInvalidFormat; the underlying cause is logged
// but never surfaced to callers.
var (
	ErrNoVideoStream = errors.New("no video stream found")
	ErrInvalidFormat = errors.New("invalid video format")
)

// VideoSpecs describes a probed video. Produced once per probe and never
// mutated afterward.
type VideoSpecs struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	Duration   float64 `json:"duration"`
	ColorSpace string  `json:"colorSpace"`
	Codec      string  `json:"codec,omitempty"`
	Size       int64   `json:"size,omitempty"`
}

// runnerFunc executes a command and returns its stdout. Swapped in tests to
// feed synthetic ffprobe reports.
type runnerFunc func(ctx context.Context, bin string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).Output()
}

// Prober runs ffprobe against local files. Concurrent probes are bounded by
// a weighted semaphore so a burst of uploads cannot fork-bomb the host, and
// each invocation is bounded by a timeout.
type Prober struct {
	bin     string
	timeout time.Duration
	sem     *semaphore.Weighted
	run     runnerFunc
}

// New creates a Prober. maxConcurrent must be >= 1.
func New(bin string, timeout time.Duration, maxConcurrent int64) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Prober{
		bin:     bin,
		timeout: timeout,
		sem:     semaphore.NewWeighted(maxConcurrent),
		run:     execRunner,
	}
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	ColorSpace string `json:"color_space"`
}

// probeReport is ffprobe's -print_format json output, reduced to the fields we read.
type probeReport struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// Probe inspects the file at path and returns its specs.
// Fails with ErrNoVideoStream when the container holds no video stream, and
// with ErrInvalidFormat for every other probing failure.
func (p *Prober) Probe(ctx context.Context, path string) (VideoSpecs, error) {
	logger := log.WithComponentFromContext(ctx, "probe")

	if err := p.sem.Acquire(ctx, 1); err != nil {
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("probe slot acquisition aborted")
		return VideoSpecs{}, fmt.Errorf("acquire probe slot: %w", err)
	}
	defer p.sem.Release(1)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.run(ctx, p.bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	metrics.ObserveProbeDuration(time.Since(start).Seconds())
	if err != nil {
		// A timeout or cancellation is an operational fault, not a statement
		// about the file.
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn().Err(err).Str(log.FieldPath, path).Msg("ffprobe aborted")
			return VideoSpecs{}, fmt.Errorf("ffprobe: %w", ctxErr)
		}
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("ffprobe invocation failed")
		return VideoSpecs{}, ErrInvalidFormat
	}

	var report probeReport
	if err := json.Unmarshal(out, &report); err != nil {
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("ffprobe output not parseable")
		return VideoSpecs{}, ErrInvalidFormat
	}

	specs, err := specsFromReport(&report)
	if err != nil {
		if !errors.Is(err, ErrNoVideoStream) {
			logger.Warn().Err(err).Str(log.FieldPath, path).Msg("ffprobe report incomplete")
			return VideoSpecs{}, ErrInvalidFormat
		}
		return VideoSpecs{}, err
	}
	return specs, nil
}

func specsFromReport(report *probeReport) (VideoSpecs, error) {
	var video *probeStream
	for i := range report.Streams {
		if report.Streams[i].CodecType == "video" {
			video = &report.Streams[i]
			break
		}
	}
	if video == nil {
		return VideoSpecs{}, ErrNoVideoStream
	}

	fps, err := parseFrameRate(video.RFrameRate)
	if err != nil {
		return VideoSpecs{}, err
	}

	// Duration and size come from container-level metadata, not the stream.
	duration, err := strconv.ParseFloat(report.Format.Duration, 64)
	if err != nil {
		return VideoSpecs{}, fmt.Errorf("container duration %q: %w", report.Format.Duration, err)
	}
	var size int64
	if report.Format.Size != "" {
		size, err = strconv.ParseInt(report.Format.Size, 10, 64)
		if err != nil {
			return VideoSpecs{}, fmt.Errorf("container size %q: %w", report.Format.Size, err)
		}
	}

	colorSpace := video.ColorSpace
	if colorSpace == "" {
		colorSpace = "unknown"
	}

	return VideoSpecs{
		Width:      video.Width,
		Height:     video.Height,
		FPS:        fps,
		Duration:   duration,
		ColorSpace: colorSpace,
		Codec:      video.CodecName,
		Size:       size,
	}, nil
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001") as exact
// floating-point division. Rounding to the nearest integer would collapse
// NTSC 29.97 into 30.
func parseFrameRate(raw string) (float64, error) {
	numStr, denStr, ok := strings.Cut(raw, "/")
	if !ok {
		// Some containers report a plain number.
		return strconv.ParseFloat(raw, 64)
	}
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate numerator %q: %w", numStr, err)
	}
	den, err := strconv.ParseFloat(denStr, 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate denominator %q: %w", denStr, err)
	}
	if den == 0 {
		return 0, fmt.Errorf("frame rate %q has zero denominator", raw)
	}
	return num / den, nil
}
