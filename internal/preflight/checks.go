package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"
	"golang.org/x/sys/unix"

	"pix360/internal/client"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDownloadDirectory passes when the download directory exists and is
// writable, or when it is missing but its nearest existing parent is writable.
func CheckDownloadDirectory(path string) Result {
	const name = "Download directory"
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first download)", path)}
}

// CheckServer verifies that the conversion server answers and accepts the
// session cookie.
func CheckServer(ctx context.Context, server Lister) Result {
	const name = "Conversion server"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conversions, err := server.List(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeServerError(err)}
	}
	active := 0
	for _, conv := range conversions {
		if conv.Restorable() {
			active++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable, session valid (%s)", english.Plural(active, "conversion", ""))}
}

// CheckNtfy verifies that the ntfy endpoint is configured and reachable.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "Notifications"

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Detail: "enabled but ntfy_topic is missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, topic, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("ntfy returned %d", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeServerError(err error) string {
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		return "session rejected (log in again and update session_cookie)"
	case errors.Is(err, client.ErrServerError):
		return "server error (500)"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (server unreachable)"
	}
	if code := client.StatusCode(err); code != 0 {
		return fmt.Sprintf("unexpected status %d", code)
	}
	return err.Error()
}
