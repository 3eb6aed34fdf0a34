package testsupport

import (
	"path/filepath"
	"testing"

	"pix360/internal/config"
)

// ConfigOption adjusts a config produced by NewConfig.
type ConfigOption func(testing.TB, *config.Config)

// NewConfig returns a valid config whose directories live under a fresh
// t.TempDir. Notifications are off and the server URL points at a closed port
// until WithServer is applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Server.BaseURL = "http://127.0.0.1:1"
	cfg.Server.SessionCookie = "test-session"
	cfg.Server.RequestTimeout = 5
	cfg.Paths = config.Paths{
		StateDir:    filepath.Join(root, "state"),
		DownloadDir: filepath.Join(root, "downloads"),
		LogDir:      filepath.Join(root, "logs"),
	}
	cfg.Notifications.Enabled = false
	cfg.Notifications.NtfyTopic = ""

	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// WithServer points the config at server and copies its session cookie.
func WithServer(server *FakeServer) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Server.BaseURL = server.URL()
		cfg.Server.SessionCookieName = server.CookieName()
		cfg.Server.SessionCookie = server.CookieValue()
	}
}

// WithNtfyTopic enables notifications published to topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Notifications = config.Notifications{Enabled: true, NtfyTopic: topic, RequestTimeout: 5}
	}
}

// WithPollInterval sets polling.interval_ms.
func WithPollInterval(ms int) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Polling.IntervalMillis = ms
	}
}

func WithEnsuredDirectories() ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		t.Helper()
		if err := cfg.EnsureDirectories(); err != nil {
			t.Fatalf("ensure directories: %v", err)
		}
	}
}
