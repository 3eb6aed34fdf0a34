package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"pix360/internal/cards"
	"pix360/internal/client"
	"pix360/internal/job"
	"pix360/internal/preflight"
	"pix360/internal/session"
	"pix360/internal/tracker"
	"pix360/internal/tui"
)

const idleCheckInterval = 200 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		plain        bool
		htmlPath     string
		exitWhenIdle bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Restore this session's conversions and follow them",
		Long: `Restore this session's conversions and follow them.

On a terminal an interactive board is shown (n: new, r: retry, h: hide,
q: quit). With --plain, or when stdout is not a terminal, every state change
is printed as a line instead. Only one watch may run per state directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := session.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, err := ctx.newClient()
			if err != nil {
				return err
			}
			if check := preflight.CheckServer(runCtx, api); !check.Passed {
				return fmt.Errorf("server check failed: %s", check.Detail)
			}

			out := cmd.OutOrStdout()
			interactive := !plain && isTerminal(out)
			if interactive {
				ctx.useFileLogger()
			} else {
				// Observers run on poll goroutines.
				out = &lockedWriter{w: out}
			}

			board := cards.NewBoard(cards.WithDownloadBase(api.BaseURL()))
			waiter := newJobWaiter()
			defer waiter.stop()
			opts := []tracker.Option{tracker.WithNavigator(tracker.NavigatorFunc(func(string) { waiter.expire() }))}
			if !interactive {
				report := jobLine(out, false)
				opts = append(opts, tracker.WithObserver(report))
			}
			tr, err := ctx.newTracker(board, opts...)
			if err != nil {
				return err
			}

			restored, err := tr.Restore(runCtx)
			if err != nil {
				return explainSession(cfg.Server.BaseURL, err)
			}
			if !interactive {
				fmt.Fprintf(out, "Restored %s\n", english.Plural(restored, "conversion", "conversions"))
			}

			if interactive {
				err = runBoard(runCtx, board, tr)
			} else {
				err = followPlain(runCtx, tr, waiter, exitWhenIdle)
			}
			tr.Close()

			if htmlPath != "" {
				if exportErr := exportHTML(board, htmlPath); exportErr != nil && err == nil {
					err = exportErr
				}
			}
			if errors.Is(err, context.Canceled) && cmd.Context().Err() == nil {
				return nil
			}
			return explainSession(cfg.Server.BaseURL, err)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print state changes instead of the interactive board")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write the results area as HTML to this file on exit")
	cmd.Flags().BoolVar(&exitWhenIdle, "exit-when-idle", false, "Exit once no conversion is pending (plain mode)")
	return cmd
}

func runBoard(ctx context.Context, board *cards.Board, tr *tracker.Tracker) error {
	model := tui.New(ctx, board, tr)
	program := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		program.Quit()
	}()
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run board: %w", err)
	}
	if model.Expired() {
		return client.ErrSessionExpired
	}
	return nil
}

// followPlain blocks until interrupted, the session expires or, with
// exitWhenIdle, no job is pending any more.
func followPlain(ctx context.Context, tr *tracker.Tracker, waiter *jobWaiter, exitWhenIdle bool) error {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-waiter.expired:
			return client.ErrSessionExpired
		case <-ticker.C:
			if exitWhenIdle && tr.Active() == 0 && !hasPending(tr.Snapshot()) {
				return nil
			}
		}
	}
}

func hasPending(jobs []job.Job) bool {
	for _, j := range jobs {
		if j.State == job.StatePending {
			return true
		}
	}
	return false
}

func exportHTML(board *cards.Board, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html export: %w", err)
	}
	if err := board.WriteHTML(file); err != nil {
		file.Close()
		return fmt.Errorf("write html export: %w", err)
	}
	return file.Close()
}
