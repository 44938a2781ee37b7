// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldVideoID   = "video_id"
	FieldUserID    = "user_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media fields
	FieldCodec      = "codec"
	FieldResolution = "resolution"
	FieldFPS        = "fps"
	FieldDuration   = "duration"
	FieldMime       = "mime"

	// Storage fields
	FieldBucket  = "bucket"
	FieldKey     = "key"
	FieldAttempt = "attempt"

	// Path fields
	FieldPath = "path"
)
