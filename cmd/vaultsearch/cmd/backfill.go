package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newBackfillCmd(a *app) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed chunks that were indexed without a vector",
		Long: `Embed chunks stored while the embedding model was unavailable.

Unlike indexing, backfill fails when the model cannot be loaded.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			out, err := a.printer(cmd, format)
			if err != nil {
				return err
			}

			idx, err := a.openIndex()
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			coord, err := a.newCoordinator(idx)
			if err != nil {
				return err
			}
			report, err := coord.Backfill(ctx, limit)
			if report != nil {
				if perr := out.BackfillReport(*report); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum chunks to embed (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
