// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package validate applies the platform video acceptance policy to probed
// files and produces typed, user-actionable verdicts.
package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ManuGH/clipd/internal/config"
	"github.com/ManuGH/clipd/internal/log"
	"github.com/ManuGH/clipd/internal/metrics"
	"github.com/ManuGH/clipd/internal/probe"
)

// MediaProber is the slice of the prober the validator needs.
type MediaProber interface {
	Probe(ctx context.Context, path string) (probe.VideoSpecs, error)
	SniffMIME(path string) (string, error)
}

// RuleError is a failed validation verdict. Specs is non-nil only when
// probing succeeded and a policy check failed afterwards; it stays nil for
// failures before specs existed (MIME sniff, size check, probing itself).
type RuleError struct {
	Kind    Kind
	Message string
	Specs   *probe.VideoSpecs
}

func (e *RuleError) Error() string { return e.Message }

// Suggestions returns the remediation list for the verdict's kind.
func (e *RuleError) Suggestions() []string { return e.Kind.Suggestions() }

// Validator applies the policy in strict order; the first failing check wins.
type Validator struct {
	limits config.PolicyConfig
	prober MediaProber
}

// New creates a Validator against the given policy.
func New(limits config.PolicyConfig, prober MediaProber) *Validator {
	return &Validator{limits: limits, prober: prober}
}

// Validate judges the file at path against the policy. It is a pure function
// of file content (no side effects beyond reading) and never panics outward:
// every failure mode comes back as a *RuleError.
//
// Check order: MIME sniff, file size, probe, resolution, frame rate,
// duration, color space. Later checks never run once one fails.
func (v *Validator) Validate(ctx context.Context, path string) (probe.VideoSpecs, error) {
	specs, err := v.validate(ctx, path)
	if err != nil {
		var re *RuleError
		if !errors.As(err, &re) {
			// Unexpected fault (I/O error, parse crash). Log the cause,
			// return a generic verdict without leaking it.
			logger := log.WithComponentFromContext(ctx, "validate")
			logger.Error().
				Err(err).
				Str(log.FieldPath, path).
				Msg("validation failed unexpectedly")
			re = &RuleError{Kind: KindSystemError, Message: KindSystemError.message()}
			err = re
		}
		metrics.IncValidationFailure(re.Kind.String())
		return probe.VideoSpecs{}, err
	}
	return specs, nil
}

func (v *Validator) validate(ctx context.Context, path string) (probe.VideoSpecs, error) {
	// 1. Content-based MIME check, before anything heavier touches the file.
	mime, err := v.prober.SniffMIME(path)
	if err != nil {
		return probe.VideoSpecs{}, fmt.Errorf("sniff mime: %w", err)
	}
	if !strings.HasPrefix(mime, "video/") {
		return probe.VideoSpecs{}, &RuleError{
			Kind:    KindInvalidMime,
			Message: fmt.Sprintf("%s: %s", KindInvalidMime.message(), mime),
		}
	}

	// 2. Quick size check; oversized or hostile input never reaches ffprobe.
	info, err := os.Stat(path)
	if err != nil {
		return probe.VideoSpecs{}, fmt.Errorf("stat: %w", err)
	}
	if info.Size() > v.limits.MaxSizeBytes {
		return probe.VideoSpecs{}, &RuleError{
			Kind:    KindFileTooLarge,
			Message: KindFileTooLarge.message(),
		}
	}

	// 3. Probe container and streams.
	specs, err := v.prober.Probe(ctx, path)
	if err != nil {
		kind := KindInvalidFormat
		if errors.Is(err, probe.ErrNoVideoStream) {
			kind = KindNoVideoStream
		} else if !errors.Is(err, probe.ErrInvalidFormat) {
			kind = KindSystemError
		}
		return probe.VideoSpecs{}, &RuleError{Kind: kind, Message: kind.message()}
	}

	// 4. Exact resolution. "Better" resolutions are still wrong.
	if specs.Width != v.limits.Width || specs.Height != v.limits.Height {
		return probe.VideoSpecs{}, &RuleError{
			Kind:    KindInvalidResolution,
			Message: fmt.Sprintf("%s: %dx%d", KindInvalidResolution.message(), specs.Width, specs.Height),
			Specs:   &specs,
		}
	}

	// 5. Frame rate window, inclusive on both bounds. Compared with plain
	// >=/<= against the configured floats; the rational fps from the probe
	// (30000/1001 = 29.97002997...) clears the 29.97 lower bound.
	if specs.FPS < v.limits.MinFPS || specs.FPS > v.limits.MaxFPS {
		return probe.VideoSpecs{}, &RuleError{
			Kind:    KindInvalidFps,
			Message: fmt.Sprintf("%s: %s", KindInvalidFps.message(), strconv.FormatFloat(specs.FPS, 'g', -1, 64)),
			Specs:   &specs,
		}
	}

	// 6. Duration ceiling.
	if specs.Duration > v.limits.MaxDuration {
		return probe.VideoSpecs{}, &RuleError{
			Kind:    KindVideoTooLong,
			Message: fmt.Sprintf("%s: %ss", KindVideoTooLong.message(), strconv.FormatFloat(specs.Duration, 'g', -1, 64)),
			Specs:   &specs,
		}
	}

	// 7. Color space, case-insensitive.
	if !strings.EqualFold(specs.ColorSpace, v.limits.ColorSpace) {
		return probe.VideoSpecs{}, &RuleError{
			Kind:    KindInvalidColorSpace,
			Message: fmt.Sprintf("%s: %s", KindInvalidColorSpace.message(), specs.ColorSpace),
			Specs:   &specs,
		}
	}

	return specs, nil
}
