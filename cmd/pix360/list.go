package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"pix360/internal/client"
	"pix360/internal/job"
)

type conversionView struct {
	ID         string `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	Status     int    `json:"status" yaml:"status"`
	URL        string `json:"url" yaml:"url"`
	Restorable bool   `json:"restorable" yaml:"restorable"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		filter string
		all    bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversions known to the server for this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := normalizeOutput(output)
			if err != nil {
				return err
			}
			api, err := ctx.newClient()
			if err != nil {
				return err
			}
			conversions, err := api.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list conversions: %w", err)
			}

			views := filterConversions(conversions, filter, all)
			if handled, err := writeStructured(cmd, format, views); handled {
				return err
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No conversions")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{view.ID, view.Title, strconv.Itoa(view.Status), view.URL})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "ID"},
				{Header: "Title", MaxWidth: 40},
				{Header: "Status", Right: true},
				{Header: "Source", MaxWidth: 60},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy match against titles and ids")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include deleted conversions")
	addOutputFlag(cmd, &output)
	return cmd
}

func filterConversions(conversions []client.Conversion, filter string, all bool) []conversionView {
	filter = strings.TrimSpace(filter)
	views := make([]conversionView, 0, len(conversions))
	for _, conv := range conversions {
		if !all && !conv.Restorable() {
			continue
		}
		title := job.NormalizeTitle(conv.Title)
		if filter != "" && !fuzzy.MatchFold(filter, title) && !strings.Contains(strings.ToLower(conv.ID), strings.ToLower(filter)) {
			continue
		}
		views = append(views, conversionView{
			ID:         conv.ID,
			Title:      title,
			Status:     conv.Status,
			URL:        conv.URL,
			Restorable: conv.Restorable(),
		})
	}
	return views
}
