package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pix360/internal/tracker"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		title   string
		options []string
		wait    bool
	)

	cmd := &cobra.Command{
		Use:   "submit URL",
		Short: "Submit a conversion job",
		Long: `Submit a conversion job for URL.

Options are sent as extra form fields. A bare key is sent as "on":
  pix360 submit https://example.com/pano.jpg --title Lobby --option hdr --option quality=high

With --wait the command polls until the conversion completes or fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := tracker.ParseOptions(options)
			if err != nil {
				return err
			}
			sub := tracker.Submission{URL: args[0], Title: title, Options: opts}
			if err := sub.Validate(); err != nil {
				return err
			}
			return explainSession(ctx.configValue().Server.BaseURL, runSubmit(cmd, ctx, sub, wait))
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Conversion title")
	cmd.Flags().StringArrayVar(&options, "option", nil, "Extra form field as key=value (repeatable)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the conversion completes or fails")
	return cmd
}

func runSubmit(cmd *cobra.Command, ctx *commandContext, sub tracker.Submission, wait bool) error {
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

	submitted, err := tr.Submit(cmd.Context(), sub)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Submitted %s (%s)\n", submitted.ID, submitted.Title)
	if !wait {
		return nil
	}

	finished, err := waiter.wait(cmd.Context(), []string{submitted.ID}, jobLine(out, shouldColorize(out)))
	if err != nil {
		return err
	}
	return outcomeError(finished)
}
