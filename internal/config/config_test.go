package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"pix360/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PIX360_SESSION", "cookie-value")
	t.Setenv("PIX360_SERVER_URL", "https://pix.example.com/")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Server.BaseURL != "https://pix.example.com" {
		t.Fatalf("expected trimmed base url from env, got %q", cfg.Server.BaseURL)
	}
	if cfg.Server.SessionCookie != "cookie-value" {
		t.Fatalf("expected session cookie from env, got %q", cfg.Server.SessionCookie)
	}
	if cfg.PollInterval().Milliseconds() != 3000 {
		t.Fatalf("expected 3000ms poll interval, got %s", cfg.PollInterval())
	}
	wantState := filepath.Join(tempHome, ".local", "share", "pix360")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Notifications.Enabled {
		t.Fatal("expected notifications disabled by default")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIX360_SESSION", "")
	t.Setenv("PIX360_SERVER_URL", "")
	t.Chdir(t.TempDir())

	type payload struct {
		Server struct {
			BaseURL       string `toml:"base_url"`
			SessionCookie string `toml:"session_cookie"`
		} `toml:"server"`
		Polling struct {
			IntervalMillis int `toml:"interval_ms"`
		} `toml:"polling"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Server.BaseURL = "https://convert.example.org"
	custom.Server.SessionCookie = "  abc  "
	custom.Polling.IntervalMillis = 500
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	configPath := filepath.Join(t.TempDir(), "pix360.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected %q to be loaded, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Server.BaseURL != "https://convert.example.org" {
		t.Fatalf("unexpected base url %q", cfg.Server.BaseURL)
	}
	if cfg.Server.SessionCookie != "abc" {
		t.Fatalf("expected trimmed session cookie, got %q", cfg.Server.SessionCookie)
	}
	if cfg.Polling.IntervalMillis != 500 {
		t.Fatalf("unexpected interval %d", cfg.Polling.IntervalMillis)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
	if cfg.Server.SessionCookieName != "sessionid" {
		t.Fatalf("expected default cookie name, got %q", cfg.Server.SessionCookieName)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "relative base url",
			mutate: func(c *config.Config) { c.Server.BaseURL = "convert.example.org" },
			want:   "server.base_url",
		},
		{
			name:   "interval too small",
			mutate: func(c *config.Config) { c.Polling.IntervalMillis = 10 },
			want:   "polling.interval_ms",
		},
		{
			name: "notifications without topic",
			mutate: func(c *config.Config) {
				c.Notifications.Enabled = true
				c.Notifications.NtfyTopic = ""
			},
			want: "notifications.ntfy_topic",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "loud" },
			want:   "logging.level",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEncodeRedactsSessionCookie(t *testing.T) {
	cfg := config.Default()
	cfg.Server.SessionCookie = "super-secret"

	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("expected session cookie to be redacted, got %s", out)
	}
	if !strings.Contains(out, "base_url") {
		t.Fatalf("expected toml output, got %s", out)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
