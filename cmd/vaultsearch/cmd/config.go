package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/vaultsearch/internal/config"
	"github.com/Aman-CERP/vaultsearch/internal/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Show, locate and initialize vaultsearch configuration.

Configuration is merged from, in order:
  1. Built-in defaults
  2. User config (~/.config/vaultsearch/config.yaml)
  3. Data directory config (.vaultsearch.yaml)
  4. VAULTSEARCH_* environment variables`,
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigPathCmd(a))

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Example: `  vaultsearch config show
  vaultsearch config show --format json`,
		Args: cobra.NoArgs,
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, _ []string) error {
			f, err := ui.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == ui.FormatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.cfg)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		}),
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json")

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default user configuration",
		Long: `Write the default configuration to the user config path.

An existing file is kept unless --force is given, in which case it is
backed up next to the original before being replaced.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, _ []string) error {
			out := ui.NewPrinter(ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(a.noColor)))

			backup, err := config.InitUserConfig(force)
			if err != nil {
				return err
			}
			if backup != "" {
				if err := out.Success("Backed up previous config to %s", backup); err != nil {
					return err
				}
			}
			return out.Success("Wrote %s", config.GetUserConfigPath())
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print configuration file paths",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(w, "user:    %s\n", config.GetUserConfigPath()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "project: %s\n", filepath.Join(a.dataDir, config.ProjectFile))
			return err
		},
	}
}
