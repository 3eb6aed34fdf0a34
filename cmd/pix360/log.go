package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "log ID",
		Short: "Print the server-side conversion log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.newClient()
			if err != nil {
				return err
			}
			text, err := api.Log(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch log for %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(text) == "" {
				fmt.Fprintln(out, "(log is empty)")
				return nil
			}
			fmt.Fprint(out, text)
			if !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
