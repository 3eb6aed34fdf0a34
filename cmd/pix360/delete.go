package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"hide"},
		Short:   "Hide conversions and ask the server to discard them",
		Long: `Hide conversions and ask the server to discard them.

One discard request is sent per id. The server answer is not checked; failures
are only logged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := ctx.newTracker(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				tr.Delete(cmd.Context(), id)
				fmt.Fprintf(out, "Discard requested for %s\n", id)
			}
			return nil
		},
	}
}
