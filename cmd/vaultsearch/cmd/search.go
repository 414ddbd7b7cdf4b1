package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/vaultsearch/internal/embed"
	"github.com/Aman-CERP/vaultsearch/internal/search"
	"github.com/Aman-CERP/vaultsearch/internal/telemetry"
)

var errKeywordOnly = errors.New("semantic search disabled by --keyword-only")

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	format  string // "text", "json"
	keyword bool   // skip the vector leg
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed vault",
		Long: `Search the index using hybrid search.

Combines FTS5 keyword ranking with embedding similarity. When the model is
unavailable, keyword results are returned on their own.

Examples:
  vaultsearch search "security deposit"
  vaultsearch search "when is rent due" -n 5
  vaultsearch search "insurance policy number" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			return runSearch(ctx, a, cmd, strings.Join(args, " "), opts)
		}),
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.keyword, "keyword-only", false, "Use keyword search only (skip semantic search)")

	return cmd
}

func runSearch(ctx context.Context, a *app, cmd *cobra.Command, query string, opts searchOptions) error {
	out, err := a.printer(cmd, opts.format)
	if err != nil {
		return err
	}

	cfg := a.cfg.Search.EngineConfig()
	if opts.limit > 0 {
		cfg.MaxResults = opts.limit
	}

	idx, err := a.openIndexReadOnly()
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	var embedder embed.Embedder
	if opts.keyword {
		embedder = embed.Unavailable("keyword-only", a.cfg.Index.Dimensions, errKeywordOnly)
	} else if embedder, err = a.newEmbedder(); err != nil {
		return err
	}
	defer func() { _ = embedder.Unload() }()

	metrics := telemetry.NewQueryMetrics()
	defer func() { _ = metrics.Close() }()

	engineOpts := []search.EngineOption{
		search.WithMetrics(metrics),
		search.WithLogger(a.logger),
	}
	if !opts.keyword {
		engineOpts = append(engineOpts, search.WithCircuitBreaker(a.newBreaker()))
	}
	engine, err := search.NewEngine(idx, embedder, cfg, engineOpts...)
	if err != nil {
		return err
	}

	a.logger.Info("search_started", slog.Int("query_len", len(query)), slog.Int("limit", cfg.MaxResults))

	results, err := engine.Search(ctx, query)
	if err != nil {
		return err
	}

	snap := metrics.Snapshot()
	a.logger.Debug("search_metrics",
		slog.Int64("queries", snap.TotalQueries),
		slog.Int64("lexical_only", snap.LexicalOnlyCount),
		slog.Int64("zero_results", snap.ZeroResultCount))

	return out.Results(query, results)
}
