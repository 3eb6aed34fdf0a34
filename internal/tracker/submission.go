package tracker

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidSubmission is returned when a submission fails local validation.
	// No request is sent in that case.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrSubmissionInFlight is returned while another submission is pending.
	ErrSubmissionInFlight = errors.New("submission already in progress")
)

// Submission is the conversion request form.
type Submission struct {
	URL     string
	Title   string
	Options map[string]string
}

var reservedFields = map[string]struct{}{"url": {}, "title": {}}

// Validate checks the form before it is sent.
func (s Submission) Validate() error {
	raw := strings.TrimSpace(s.URL)
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidSubmission)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidSubmission, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: url must use http or https", ErrInvalidSubmission)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: url must include a host", ErrInvalidSubmission)
	}
	for key := range s.Options {
		name := strings.TrimSpace(key)
		if name == "" {
			return fmt.Errorf("%w: option name is empty", ErrInvalidSubmission)
		}
		if _, reserved := reservedFields[strings.ToLower(name)]; reserved {
			return fmt.Errorf("%w: option %q is reserved", ErrInvalidSubmission, name)
		}
	}
	return nil
}

// Form serializes the submission into form fields.
func (s Submission) Form() url.Values {
	form := url.Values{}
	form.Set("url", strings.TrimSpace(s.URL))
	form.Set("title", strings.TrimSpace(s.Title))
	for key, value := range s.Options {
		form.Set(strings.TrimSpace(key), value)
	}
	return form
}

// ParseOptions turns "key=value" pairs into an options map. A bare key maps to
// "on", the value an enabled checkbox submits.
func ParseOptions(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: malformed option %q", ErrInvalidSubmission, pair)
		}
		if !found {
			value = "on"
		}
		options[key] = strings.TrimSpace(value)
	}
	return options, nil
}
