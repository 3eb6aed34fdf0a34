package job

import "strings"

// DefaultTitle is shown when the user leaves the title empty.
const DefaultTitle = "No title"

// VideoContentType is the only content type rendered as a video player.
const VideoContentType = "video/mp4"

// State represents the client-side lifecycle of a tracked job.
type State int

const (
	StatePending State = iota
	StateCompleted
	StateFailed
	StateRemoved
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Terminal reports whether polling has ended for the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// MediaKind describes the asset a completed job produced.
type MediaKind int

const (
	MediaUnknown MediaKind = iota
	MediaImage
	MediaVideo
)

func (m MediaKind) String() string {
	switch m {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// MediaKindFromContentType maps a result content type to a media kind.
// Only video/mp4 is treated as video; everything else renders as an image.
func MediaKindFromContentType(contentType string) MediaKind {
	if strings.TrimSpace(contentType) == VideoContentType {
		return MediaVideo
	}
	return MediaImage
}

// Job is the tracker's record of one server-side conversion.
type Job struct {
	ID    string
	Title string
	Media MediaKind
	State State
}

// NormalizeTitle trims the title and substitutes DefaultTitle when empty.
func NormalizeTitle(title string) string {
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		return trimmed
	}
	return DefaultTitle
}
