package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pix360/internal/client"
	"pix360/internal/session"
	"pix360/internal/testsupport"
)

func TestSubmitWaitCompletes(t *testing.T) {
	env := setupCLITestEnv(t)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for env.server.Calls(http.MethodPost, "/start") == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		env.server.SetStatus("job-1", "completed", "image/jpeg")
	}()

	out, _, err := runCLI(t, []string{
		"submit", "https://example.com/lobby.jpg",
		"--title", "Lobby",
		"--option", "hdr",
		"--option", "quality=high",
		"--wait",
	}, env.configPath)
	if err != nil {
		t.Fatalf("submit --wait: %v", err)
	}
	requireContains(t, out, "Submitted job-1 (Lobby)")
	requireContains(t, out, "[OK] Lobby (Completed, image)")

	conv, ok := env.server.Conversion("job-1")
	if !ok {
		t.Fatal("expected server to record job-1")
	}
	if conv.Form.Get("hdr") != "on" || conv.Form.Get("quality") != "high" {
		t.Fatalf("unexpected form fields: %v", conv.Form)
	}

	out, _, err = runCLI(t, []string{"history", "--job", "job-1"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "submitted")
	requireContains(t, out, "completed")
}

func TestSubmitWaitReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for env.server.Calls(http.MethodPost, "/start") == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		env.server.ForceStatusCode("job-1", http.StatusInternalServerError)
	}()

	out, _, err := runCLI(t, []string{"submit", "https://example.com/a.jpg", "--wait"}, env.configPath)
	if err == nil {
		t.Fatal("expected failed conversion to return an error")
	}
	requireContains(t, err.Error(), "1 conversion(s) failed")
	requireContains(t, out, "Submitted job-1 (No title)")
	requireContains(t, out, "[ERROR]")
}

func TestSubmitRejectsInvalidURL(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"submit", "not a url"}, env.configPath)
	if err == nil {
		t.Fatal("expected invalid submission error")
	}
	requireContains(t, err.Error(), "invalid submission")
	if calls := env.server.Calls(http.MethodPost, "/start"); calls != 0 {
		t.Fatalf("expected no start request, got %d", calls)
	}
}

func TestSubmitWaitSessionExpired(t *testing.T) {
	env := setupCLITestEnv(t)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for env.server.Calls(http.MethodPost, "/start") == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		env.server.ExpireSession()
	}()

	_, _, err := runCLI(t, []string{"submit", "https://example.com/a.jpg", "--wait"}, env.configPath)
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
	requireContains(t, err.Error(), "sign in again at "+env.server.URL()+"/")
}

func TestListFilterAndFormats(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "a1", Title: "Lobby Panorama", URL: "https://example.com/a"})
	env.server.Add(testsupport.FakeConversion{ID: "b2", Title: "Garden", URL: "https://example.com/b"})
	env.server.Add(testsupport.FakeConversion{ID: "c3", Title: "Old", ListStatus: -1})

	out, _, err := runCLI(t, []string{"list", "--filter", "lobpan"}, env.configPath)
	if err != nil {
		t.Fatalf("list --filter: %v", err)
	}
	requireContains(t, out, "Lobby Panorama")
	requireNotContains(t, out, "Garden")

	out, _, err = runCLI(t, []string{"list", "--output", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("list json: %v", err)
	}
	var views []conversionView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("expected deleted conversion hidden, got %+v", views)
	}

	out, _, err = runCLI(t, []string{"list", "--all", "-o", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("list yaml: %v", err)
	}
	requireContains(t, out, "title: Old")
	requireContains(t, out, "restorable: false")

	if _, _, err := runCLI(t, []string{"list", "-o", "xml"}, env.configPath); err == nil {
		t.Fatal("expected unsupported output format error")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "vid", Status: "completed", ContentType: "video/mp4"})
	env.server.Add(testsupport.FakeConversion{ID: "busy"})

	out, _, err := runCLI(t, []string{"status", "vid", "busy", "gone"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Completed")
	requireContains(t, out, "video")
	requireContains(t, out, "Processing")
	requireContains(t, out, "Failed")

	env.server.ExpireSession()
	_, _, err = runCLI(t, []string{"status", "vid"}, env.configPath)
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestRetryKeepsServerTitle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "old", Title: "Lobby", Status: "failed"})
	env.server.SetRetryID("old", "new")

	out, _, err := runCLI(t, []string{"retry", "old"}, env.configPath)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "Retrying old as new (Lobby)")

	env.server.SetRetryID("old", "old")
	if _, _, err := runCLI(t, []string{"retry", "old"}, env.configPath); err == nil {
		t.Fatal("expected reused id to be rejected")
	}
}

func TestDeleteSendsOneDiscardPerID(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "a"})

	out, _, err := runCLI(t, []string{"delete", "a", "missing"}, env.configPath)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Discard requested for a")
	requireContains(t, out, "Discard requested for missing")
	if calls := env.server.Calls(http.MethodGet, "/delete/a"); calls != 1 {
		t.Fatalf("expected one discard for a, got %d", calls)
	}
	if calls := env.server.Calls(http.MethodGet, "/delete/missing"); calls != 1 {
		t.Fatalf("expected one discard for missing, got %d", calls)
	}
	if conv, _ := env.server.Conversion("a"); conv.ListStatus != -1 {
		t.Fatalf("expected a to be discarded, got %+v", conv)
	}
}

func TestDownloadWritesAssets(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "pano", Status: "completed", ContentType: "image/jpeg", Body: []byte("jpeg-bytes")})
	env.server.Add(testsupport.FakeConversion{ID: "clip", Status: "completed", ContentType: "video/mp4", Body: []byte("mp4")})
	dir := filepath.Join(env.baseDir, "out")

	out, _, err := runCLI(t, []string{"download", "pano", "clip", "--dir", dir}, env.configPath)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	requireContains(t, out, "Saved pano")
	requireContains(t, out, "10 B")

	data, err := os.ReadFile(filepath.Join(dir, "pano.jpg"))
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected pano.jpg: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "clip.mp4")); err != nil {
		t.Fatalf("expected clip.mp4: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".part") {
			t.Fatalf("partial file left behind: %s", entry.Name())
		}
	}

	if _, _, err := runCLI(t, []string{"download", "missing", "--dir", dir}, env.configPath); err == nil {
		t.Fatal("expected download of unknown id to fail")
	}
}

func TestLogCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "a", Log: "stitching frames\ndone"})
	env.server.Add(testsupport.FakeConversion{ID: "b"})

	out, _, err := runCLI(t, []string{"log", "a"}, env.configPath)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if out != "stitching frames\ndone\n" {
		t.Fatalf("unexpected log output %q", out)
	}

	out, _, err = runCLI(t, []string{"log", "b"}, env.configPath)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	requireContains(t, out, "(log is empty)")
}

func TestWatchPlainExitsWhenIdle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "done", Title: "Lobby", Status: "completed", ContentType: "image/jpeg"})
	env.server.Add(testsupport.FakeConversion{ID: "gone", Title: "Hidden", ListStatus: -1})
	htmlPath := filepath.Join(env.baseDir, "results.html")

	out, _, err := runCLI(t, []string{"watch", "--plain", "--exit-when-idle", "--html", htmlPath}, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, "Restored 1 conversion")
	requireContains(t, out, "Lobby (Pending)")
	requireContains(t, out, "Lobby (Completed, image)")
	requireNotContains(t, out, "Hidden")

	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("read html export: %v", err)
	}
	requireContains(t, string(html), `data-viewer="panorama"`)
	requireContains(t, string(html), env.server.URL()+"/download/done")
}

func TestWatchPlainReportsManyCompletions(t *testing.T) {
	env := setupCLITestEnv(t)
	const count = 8
	for i := 0; i < count; i++ {
		env.server.Add(testsupport.FakeConversion{
			ID:          fmt.Sprintf("pano-%d", i),
			Title:       fmt.Sprintf("Room %d", i),
			Status:      "completed",
			ContentType: "image/jpeg",
		})
	}

	out, _, err := runCLI(t, []string{"watch", "--plain", "--exit-when-idle"}, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Restored %d conversions", count))
	for i := 0; i < count; i++ {
		requireContains(t, out, fmt.Sprintf("Room %d (Completed, image)", i))
	}
	if got := strings.Count(out, "(Completed, image)"); got != count {
		t.Fatalf("expected %d completion lines, got %d:\n%s", count, got, out)
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.Count(line, "[") > 1 {
			t.Fatalf("interleaved output line %q", line)
		}
	}
}

func TestWatchStopsOnSessionExpiry(t *testing.T) {
	env := setupCLITestEnv(t)
	env.server.Add(testsupport.FakeConversion{ID: "busy", Title: "Lobby"})

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for env.server.Calls(http.MethodGet, "/status/busy") == 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		env.server.ExpireSession()
	}()

	_, _, err := runCLI(t, []string{"watch", "--plain"}, env.configPath)
	if !errors.Is(err, client.ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestWatchRefusesSecondInstance(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEnsuredDirectories())

	held, err := session.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	_, _, err = runCLI(t, []string{"watch", "--plain", "--exit-when-idle"}, env.configPath)
	if err == nil {
		t.Fatal("expected second watcher to be refused")
	}
	if !errors.Is(err, session.ErrAlreadyWatching) {
		t.Fatalf("expected ErrAlreadyWatching, got %v", err)
	}
	if calls := env.server.Calls(http.MethodGet, "/list"); calls != 0 {
		t.Fatalf("expected no server calls, got %d", calls)
	}
}

func TestDoctor(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "All checks passed")

	env.server.ExpireSession()
	out, _, err = runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatalf("expected doctor to fail with an expired session\n%s", out)
	}
	requireContains(t, err.Error(), "1 check failed")
}

func TestTestNotify(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ntfy.Close)

	disabled := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, disabled.configPath)
	if err != nil {
		t.Fatalf("test-notify disabled: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")

	enabled := setupCLITestEnv(t, testsupport.WithNtfyTopic(ntfy.URL+"/pix360"))
	out, _, err = runCLI(t, []string{"test-notify"}, enabled.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 || bodies[0] != "Notification system test" {
		t.Fatalf("unexpected ntfy bodies %q", bodies)
	}
}

func TestHistoryClear(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"submit", "https://example.com/a.jpg"}, env.configPath); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("history json: %v", err)
	}
	var views []historyView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].Event != "submitted" || views[0].SessionID == "" {
		t.Fatalf("unexpected history %+v", views)
	}

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 entry")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No history")
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEnsuredDirectories())
	if err := os.WriteFile(env.cfg.LogPath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
