package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pix360/internal/config"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 2048

	// SessionHeader carries the per-run client session id.
	SessionHeader = "X-Client-Session"
)

// Client wraps the conversion server API.
type Client struct {
	baseURL    string
	cookieName string
	cookie     string
	userAgent  string
	sessionID  string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSessionID sets the X-Client-Session header value.
func WithSessionID(id string) Option {
	return func(c *Client) {
		c.sessionID = strings.TrimSpace(id)
	}
}

// New constructs a client for the server described by cfg.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg != nil && cfg.RequestTimeout() > 0 {
		timeout = cfg.RequestTimeout()
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	if cfg != nil {
		c.baseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")
		c.cookieName = strings.TrimSpace(cfg.Server.SessionCookieName)
		c.cookie = strings.TrimSpace(cfg.Server.SessionCookie)
		c.userAgent = strings.TrimSpace(cfg.Server.UserAgent)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root used for requests.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DownloadURL returns the absolute URL of a finished asset.
func (c *Client) DownloadURL(id string) string {
	return c.baseURL + "/download/" + url.PathEscape(id)
}

// Start submits a new conversion and returns its id.
func (c *Client) Start(ctx context.Context, form url.Values) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/start", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("start conversion: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var decoded idResponse
	if err := c.doJSON(req, &decoded); err != nil {
		return "", fmt.Errorf("start conversion: %w", err)
	}
	id := strings.TrimSpace(decoded.ID)
	if id == "" {
		return "", errors.New("start conversion: server returned empty id")
	}
	return id, nil
}

// Status fetches the current status of a conversion.
func (c *Client) Status(ctx context.Context, id string) (*StatusResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/status/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("conversion status: %w", err)
	}
	var decoded StatusResponse
	if err := c.doJSON(req, &decoded); err != nil {
		return nil, fmt.Errorf("conversion status %s: %w", id, err)
	}
	return &decoded, nil
}

// Retry asks the server to rerun a conversion and returns the new id.
func (c *Client) Retry(ctx context.Context, id string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/retry/"+url.PathEscape(id), nil)
	if err != nil {
		return "", fmt.Errorf("retry conversion: %w", err)
	}
	var decoded idResponse
	if err := c.doJSON(req, &decoded); err != nil {
		return "", fmt.Errorf("retry conversion %s: %w", id, err)
	}
	return strings.TrimSpace(decoded.ID), nil
}

// Delete discards a conversion on the server. The response body is ignored.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/delete/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("delete conversion: %w", err)
	}
	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("delete conversion %s: %w", id, err)
	}
	return nil
}

// List returns the conversions associated with the current session.
func (c *Client) List(ctx context.Context) ([]Conversion, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/list", nil)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	var decoded listResponse
	if err := c.doJSON(req, &decoded); err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	return decoded.Conversions, nil
}

// Log returns the server-side processing log of a conversion.
func (c *Client) Log(ctx context.Context, id string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/log/"+url.PathEscape(id), nil)
	if err != nil {
		return "", fmt.Errorf("conversion log: %w", err)
	}
	var decoded logResponse
	if err := c.doJSON(req, &decoded); err != nil {
		return "", fmt.Errorf("conversion log %s: %w", id, err)
	}
	return decoded.Log, nil
}

// Download streams a finished asset into w.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (DownloadInfo, error) {
	var info DownloadInfo
	req, err := c.newRequest(ctx, http.MethodGet, "/download/"+url.PathEscape(id), nil)
	if err != nil {
		return info, fmt.Errorf("download conversion: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return info, fmt.Errorf("download conversion %s: %w", id, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return info, fmt.Errorf("download conversion %s: %w", id, err)
	}
	info.ContentType = resp.Header.Get("Content-Type")
	written, err := io.Copy(w, resp.Body)
	info.Bytes = written
	if err != nil {
		return info, fmt.Errorf("download conversion %s: write: %w", id, err)
	}
	return info, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, errors.New("server base url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}
	if c.cookieName != "" && c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.cookie})
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}
