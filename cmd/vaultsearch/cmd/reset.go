package cmd

import (
	"context"

	"github.com/spf13/cobra"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

func newResetCmd(a *app) *cobra.Command {
	var (
		yes    bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every item from the index",
		Long: `Delete every chunk and embedding from the index.

The index file itself is kept. Pass --yes to confirm.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			out, err := a.printer(cmd, format)
			if err != nil {
				return err
			}
			if !yes {
				return verrors.ValidationError("reset deletes the whole index", nil).
					WithSuggestion("Re-run with --yes to confirm")
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
			if err := coord.Reset(ctx); err != nil {
				return err
			}
			return out.Success("Index reset")
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deleting the whole index")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
