package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pix360/internal/tracker"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var (
		title string
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "retry ID",
		Short: "Rerun a conversion under a new id",
		Long: `Rerun a conversion under a new id.

The new conversion keeps the old title unless --title is given. The old
conversion is left as it is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return explainSession(ctx.configValue().Server.BaseURL, runRetry(cmd, ctx, args[0], title, wait))
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title for the new conversion (defaults to the old title)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the new conversion completes or fails")
	return cmd
}

func runRetry(cmd *cobra.Command, ctx *commandContext, id, title string, wait bool) error {
	waiter := newJobWaiter()
	defer waiter.stop()
	var opts []tracker.Option
	if wait {
		opts = waiter.options()
	}
	tr, err := ctx.newTracker(nil, opts...)
	if err != nil {
		return err
	}
	if title == "" {
		title = lookupTitle(cmd, ctx, id)
	}

	retried, err := tr.RetryAs(cmd.Context(), id, title)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Retrying %s as %s (%s)\n", id, retried.ID, retried.Title)
	if !wait {
		return nil
	}

	finished, err := waiter.wait(cmd.Context(), []string{retried.ID}, jobLine(out, shouldColorize(out)))
	if err != nil {
		return err
	}
	return outcomeError(finished)
}

// lookupTitle finds the title of id in the server listing. Errors yield "".
func lookupTitle(cmd *cobra.Command, ctx *commandContext, id string) string {
	api, err := ctx.newClient()
	if err != nil {
		return ""
	}
	conversions, err := api.List(cmd.Context())
	if err != nil {
		return ""
	}
	for _, conv := range conversions {
		if conv.ID == id {
			return conv.Title
		}
	}
	return ""
}
