package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		format    string
		listItems bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			out, err := a.printer(cmd, format)
			if err != nil {
				return err
			}

			idx, err := a.openIndexReadOnly()
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			stats, err := idx.Stats(ctx)
			if err != nil {
				return err
			}

			var ids []string
			if listItems {
				if ids, err = idx.ItemIDs(ctx); err != nil {
					return err
				}
			}
			return out.Stats(*stats, ids)
		}),
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&listItems, "items", false, "List indexed item IDs")

	return cmd
}
