package preflight

import (
	"context"

	"pix360/internal/client"
	"pix360/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Lister is the server call used to probe reachability and the session.
type Lister interface {
	List(ctx context.Context) ([]client.Conversion, error)
}

// RunAll executes every applicable check for cfg. Notification reachability is
// only checked when notifications are enabled.
func RunAll(ctx context.Context, cfg *config.Config, server Lister) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDownloadDirectory(cfg.Paths.DownloadDir),
	}
	if server != nil {
		results = append(results, CheckServer(ctx, server))
	}
	if cfg.Notifications.Enabled {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed counts the results that did not pass.
func Failed(results []Result) int {
	failed := 0
	for _, result := range results {
		if !result.Passed {
			failed++
		}
	}
	return failed
}
