package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

func newRemoveCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item and its embeddings from the index",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			out, err := a.printer(cmd, format)
			if err != nil {
				return err
			}
			itemID := strings.TrimSpace(args[0])
			if itemID == "" {
				return verrors.ValidationError("item id is required", nil)
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
			if err := coord.RemoveItem(ctx, itemID); err != nil {
				return err
			}
			return out.Success("Removed %s", itemID)
		}),
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
