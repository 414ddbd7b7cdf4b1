// Package cmd provides the CLI commands for vaultsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/vaultsearch/internal/config"
	"github.com/Aman-CERP/vaultsearch/internal/logging"
	"github.com/Aman-CERP/vaultsearch/internal/ui"
	"github.com/Aman-CERP/vaultsearch/pkg/version"
)

// skipConfigAnnotation marks commands that run without loading config.
const skipConfigAnnotation = "skip_config"

// app carries state shared by all subcommands of one root command.
type app struct {
	dataDir string
	debug   bool
	noColor bool

	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

// NewRootCmd creates the root command for the vaultsearch CLI.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	cmd := &cobra.Command{
		Use:   "vaultsearch",
		Short: "On-device hybrid search over a personal document vault",
		Long: `vaultsearch indexes the text of your documents into a local SQLite
database and answers queries by fusing full-text (FTS5/BM25) matches with
embedding similarity.

Nothing leaves the machine: embeddings are computed locally and the
index lives in the data directory.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			a.teardown()
			return nil
		},
	}

	cmd.SetVersionTemplate("vaultsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", defaultDataDir(), "Directory holding the index, vocabulary and logs")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr and the log file")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newResetCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newBackfillCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func defaultDataDir() string {
	if dir := os.Getenv("VAULTSEARCH_DATA_DIR"); dir != "" {
		return dir
	}
	return config.DefaultDataDir()
}

// setup loads configuration and starts file logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	cfg, err := config.Load(a.dataDir)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Stderr = true
	}
	a.cfg = cfg

	logger, cleanup, err := logging.Setup(cfg.Logging.SetupConfig())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	prev := slog.Default()
	a.logger = logger
	a.cleanup = func() {
		slog.SetDefault(prev)
		cleanup()
	}
	slog.SetDefault(logger)

	logger.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("data_dir", a.dataDir),
		slog.String("version", version.Version))
	return nil
}

func (a *app) teardown() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// run wraps a command body so logging is torn down even when it fails.
func (a *app) run(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.teardown()
		return fn(cmd.Context(), cmd, args)
	}
}

// printer builds a Printer for the command's stdout.
func (a *app) printer(cmd *cobra.Command, format string) (*ui.Printer, error) {
	f, err := ui.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return ui.NewPrinter(ui.NewConfig(cmd.OutOrStdout(), ui.WithFormat(f), ui.WithNoColor(a.noColor))), nil
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		ui.NewPrinter(ui.NewConfig(root.ErrOrStderr())).Error(err)
	}
	return err
}
