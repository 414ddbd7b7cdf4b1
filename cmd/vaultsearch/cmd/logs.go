package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/vaultsearch/internal/config"
	"github.com/Aman-CERP/vaultsearch/internal/logging"
	"github.com/Aman-CERP/vaultsearch/internal/ui"
)

// logsOptions holds CLI flags for logs.
type logsOptions struct {
	lines  int
	level  string
	grep   string
	file   string
	follow bool
}

func newLogsCmd(a *app) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View vaultsearch log files",
		Long: `View and follow the structured log written by vaultsearch commands.

Examples:
  vaultsearch logs
  vaultsearch logs -n 100 --level warn
  vaultsearch logs --grep search_ --follow`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			return runLogs(ctx, a, cmd, opts)
		}),
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVarP(&opts.grep, "grep", "g", "", "Only show lines matching this regular expression")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read (default from config)")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "F", false, "Keep printing new entries")

	return cmd
}

// logPath resolves the log file without requiring a valid config.
func (a *app) logPath(explicit string) (string, error) {
	if explicit != "" {
		return logging.FindLogFile(explicit)
	}
	path := filepath.Join(a.dataDir, config.LogFile)
	if cfg, err := config.Load(a.dataDir); err == nil && cfg.Logging.File != "" {
		path = cfg.Logging.File
	}
	return logging.FindLogFile(path)
}

func runLogs(ctx context.Context, a *app, cmd *cobra.Command, opts logsOptions) error {
	vcfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(a.noColor)).NoColor,
	}
	if opts.grep != "" {
		re, err := regexp.Compile(opts.grep)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
		vcfg.Pattern = re
	}

	path, err := a.logPath(opts.file)
	if err != nil {
		return err
	}

	viewer := logging.NewViewer(vcfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ch := make(chan logging.LogEntry)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		return viewer.Follow(gctx, path, ch)
	})
	g.Go(func() error {
		for e := range ch {
			viewer.Print([]logging.LogEntry{e})
		}
		return nil
	})
	return g.Wait()
}
