package client

import "strings"

// Server-side status strings reported by /status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StatusResponse is the body of GET /status/{id}.
type StatusResponse struct {
	Status      string `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Result      string `json:"result,omitempty"`
}

// Completed reports whether the conversion finished successfully.
func (s StatusResponse) Completed() bool {
	return strings.EqualFold(strings.TrimSpace(s.Status), StatusCompleted)
}

// Failed reports whether the conversion failed.
func (s StatusResponse) Failed() bool {
	return strings.EqualFold(strings.TrimSpace(s.Status), StatusFailed)
}

// Conversion is one entry of GET /list.
type Conversion struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	URL    string `json:"url"`
}

// Restorable reports whether the conversion should be tracked again after a
// restart. Negative status codes mark deleted or never-started conversions.
func (c Conversion) Restorable() bool {
	return c.Status >= 0
}

// DownloadInfo describes an asset written by Download.
type DownloadInfo struct {
	ContentType string
	Bytes       int64
}

type idResponse struct {
	ID string `json:"id"`
}

type listResponse struct {
	Conversions []Conversion `json:"conversions"`
}

type logResponse struct {
	Log string `json:"log"`
}
