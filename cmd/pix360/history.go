package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"pix360/internal/history"
)

type historyView struct {
	JobID     string    `json:"job_id" yaml:"job_id"`
	Title     string    `json:"title" yaml:"title"`
	Event     string    `json:"event" yaml:"event"`
	Detail    string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		jobID  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the local job event journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := normalizeOutput(output)
			if err != nil {
				return err
			}
			store, err := ctx.history()
			if err != nil {
				return err
			}

			var entries []history.Entry
			if id := strings.TrimSpace(jobID); id != "" {
				entries, err = store.ForJob(cmd.Context(), id)
			} else {
				entries, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			views := make([]historyView, 0, len(entries))
			for _, entry := range entries {
				views = append(views, historyView{
					JobID:     entry.JobID,
					Title:     entry.Title,
					Event:     entry.Event,
					Detail:    entry.Detail,
					SessionID: entry.SessionID,
					CreatedAt: entry.CreatedAt,
				})
			}
			if handled, err := writeStructured(cmd, format, views); handled {
				return err
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No history")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{
					humanize.Time(view.CreatedAt),
					view.JobID,
					view.Title,
					view.Event,
					dashIfEmpty(view.Detail),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "When"},
				{Header: "Job"},
				{Header: "Title", MaxWidth: 40},
				{Header: "Event"},
				{Header: "Detail", MaxWidth: 50},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show events for this job id")
	addOutputFlag(cmd, &output)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every journal entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.history()
			if err != nil {
				return err
			}
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", english.Plural(int(removed), "entry", "entries"))
			return nil
		},
	})
	return cmd
}
