package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/extract"
	"github.com/Aman-CERP/vaultsearch/internal/index"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	format string
}

func newIndexCmd(a *app) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <item-id> <file>...",
		Short: "Index the text of one item",
		Long: `Extract the text of the given files and index it under item-id.

Pages of all files are stored in argument order as a single item.
Indexing an existing item replaces its chunks. When the embedding model is
unavailable the item is indexed for keyword search only; run
'vaultsearch backfill' later to add vectors.

Supported formats: ` + strings.Join(extract.SupportedExtensions(), " ") + `

Examples:
  vaultsearch index lease-2024 ~/vault/lease.pdf
  vaultsearch index taxes-2023 w2.pdf notes.md --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			return runIndex(ctx, a, cmd, args[0], args[1:], opts)
		}),
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runIndex(ctx context.Context, a *app, cmd *cobra.Command, itemID string, files []string, opts indexOptions) error {
	out, err := a.printer(cmd, opts.format)
	if err != nil {
		return err
	}

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return verrors.ValidationError("item id is required", nil).
			WithSuggestion("Pass a non-empty item id as the first argument")
	}
	// Reject unsupported files before touching the index.
	for _, f := range files {
		if _, err := extract.ForPath(f); err != nil {
			return err
		}
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

	a.logger.Info("index_started", slog.String("item_id", itemID), slog.Int("files", len(files)))

	report, err := coord.IndexBatch(ctx, []index.Item{{ID: itemID, Pages: filePages(files)}})
	if report != nil {
		if perr := out.BatchReport(*report); perr != nil && err == nil {
			err = perr
		}
		if err == nil && report.ExtractFailures > 0 {
			err = verrors.New(verrors.ErrCodeExtractFailed, "text extraction failed for "+itemID, nil).
				WithSuggestion("Run with --debug to see the extractor error")
		}
	}
	return err
}

// filePages extracts files in order and concatenates their pages.
func filePages(files []string) index.PageSource {
	return func(ctx context.Context) ([]chunk.PageInput, error) {
		var pages []chunk.PageInput
		for _, f := range files {
			p, err := extract.File(ctx, f)
			if err != nil {
				return nil, err
			}
			pages = append(pages, p...)
		}
		return pages, nil
	}
}
