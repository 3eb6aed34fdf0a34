package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired indicates the server rejected the session cookie.
	ErrSessionExpired = errors.New("session expired")
	// ErrJobNotFound indicates the server does not know the conversion id.
	ErrJobNotFound = errors.New("conversion not found")
	// ErrServerError indicates the server failed while handling the request.
	ErrServerError = errors.New("server error")
)

// StatusError describes an unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, body)
}

// Unwrap maps well-known status codes to their sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrSessionExpired
	case http.StatusNotFound:
		return ErrJobNotFound
	case http.StatusInternalServerError:
		return ErrServerError
	default:
		return nil
	}
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}
