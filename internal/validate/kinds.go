// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

// Kind identifies why a video failed validation. The kind→message and
// kind→suggestions mappings are part of the client wire contract; clients
// render the suggestion strings verbatim.
type Kind int

const (
	KindInvalidMime Kind = iota
	KindFileTooLarge
	KindInvalidFormat
	KindNoVideoStream
	KindInvalidResolution
	KindInvalidFps
	KindVideoTooLong
	KindInvalidColorSpace
	KindSystemError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidMime:
		return "invalid_mime"
	case KindFileTooLarge:
		return "file_too_large"
	case KindInvalidFormat:
		return "invalid_format"
	case KindNoVideoStream:
		return "no_video_stream"
	case KindInvalidResolution:
		return "invalid_resolution"
	case KindInvalidFps:
		return "invalid_fps"
	case KindVideoTooLong:
		return "video_too_long"
	case KindInvalidColorSpace:
		return "invalid_color_space"
	default:
		return "system_error"
	}
}

// message returns the human-readable error prefix for the kind.
func (k Kind) message() string {
	switch k {
	case KindInvalidMime:
		return "Invalid file type"
	case KindFileTooLarge:
		return "File too large"
	case KindInvalidFormat:
		return "Invalid video format"
	case KindNoVideoStream:
		return "No video stream found"
	case KindInvalidResolution:
		return "Invalid resolution"
	case KindInvalidFps:
		return "Invalid frame rate"
	case KindVideoTooLong:
		return "Video too long"
	case KindInvalidColorSpace:
		return "Invalid color space"
	default:
		return "System error"
	}
}

// genericSuggestions is shared by every failure where the file could not be
// probed at all (corrupt container, no video stream, unexpected fault).
var genericSuggestions = []string{
	"Ensure the video file is not corrupted",
	"Try re-recording or converting the video",
	"Check if your device supports the required format",
}

// Suggestions returns the fixed, human-actionable remediation list for the
// kind. Static policy data, not user input.
func (k Kind) Suggestions() []string {
	switch k {
	case KindInvalidMime:
		return []string{"Only video files are accepted"}
	case KindFileTooLarge:
		return []string{
			"File must be under 6MB",
			"Try compressing the video",
			"Use a lower quality setting when recording",
		}
	case KindInvalidResolution:
		return []string{
			"Video must be exactly 720x1280",
			"Use a video editor to resize the video",
			"Most phones can record in this resolution natively",
		}
	case KindInvalidFps:
		return []string{
			"Frame rate must be between 29.97 and 30 FPS",
			"Try recording at 30 FPS",
			"Convert using a video editor",
		}
	case KindVideoTooLong:
		return []string{
			"Video must be under 60 seconds",
			"Trim your video to be shorter",
			"Split long videos into multiple parts",
		}
	case KindInvalidColorSpace:
		return []string{
			"Video must use BT.709 color space",
			"Most modern phones record in this format",
			"Try converting with a video editor",
		}
	default:
		// invalid_format, no_video_stream, system_error
		return genericSuggestions
	}
}
