package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pix360/internal/client"
	"pix360/internal/job"
)

const statusConcurrency = 4

type statusView struct {
	ID          string `json:"id" yaml:"id"`
	Status      string `json:"status" yaml:"status"`
	State       string `json:"state" yaml:"state"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Media       string `json:"media,omitempty" yaml:"media,omitempty"`
	Result      string `json:"result,omitempty" yaml:"result,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status ID...",
		Short: "Show the server status of conversions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := normalizeOutput(output)
			if err != nil {
				return err
			}
			api, err := ctx.newClient()
			if err != nil {
				return err
			}
			views, err := fetchStatuses(cmd.Context(), api, args)
			if err != nil {
				return explainSession(api.BaseURL(), err)
			}
			if handled, err := writeStructured(cmd, format, views); handled {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				detail := view.Result
				if view.Error != "" {
					detail = view.Error
				}
				rows = append(rows, []string{
					view.ID,
					serverStatusLabel(view.Status),
					stateCell(view.State, colorize),
					dashIfEmpty(view.Media),
					dashIfEmpty(detail),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "ID"},
				{Header: "Server"},
				{Header: "State"},
				{Header: "Media"},
				{Header: "Detail", MaxWidth: 60},
			}, rows))
			return nil
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}

type statusFetcher interface {
	Status(ctx context.Context, id string) (*client.StatusResponse, error)
}

// fetchStatuses queries ids concurrently and maps each answer onto the state
// the poller would derive from it. A session error aborts the whole call.
func fetchStatuses(ctx context.Context, api statusFetcher, ids []string) ([]statusView, error) {
	views := make([]statusView, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			resp, err := api.Status(gctx, id)
			view := statusView{ID: id, State: job.StatePending.String()}
			switch {
			case errors.Is(err, client.ErrSessionExpired):
				return err
			case errors.Is(err, client.ErrJobNotFound), errors.Is(err, client.ErrServerError):
				view.State = job.StateFailed.String()
				view.Error = err.Error()
			case err != nil:
				view.Error = err.Error()
			case resp != nil:
				view.Status = resp.Status
				view.ContentType = resp.ContentType
				view.Result = resp.Result
				switch {
				case resp.Completed():
					view.State = job.StateCompleted.String()
					view.Media = job.MediaKindFromContentType(resp.ContentType).String()
				case resp.Failed():
					view.State = job.StateFailed.String()
				}
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func stateCell(name string, colorize bool) string {
	for _, state := range []job.State{job.StatePending, job.StateCompleted, job.StateFailed, job.StateRemoved} {
		if state.String() == name {
			return stateLabel(state, colorize)
		}
	}
	return dashIfEmpty(name)
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
