package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/vaultsearch/internal/embed"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/preflight"
)

func newDoctorCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the data directory, index and embedding model",
		Long: `Run preflight checks against the data directory.

Required checks (write permissions, disk space, index integrity) must pass
for vaultsearch to work. Optional checks (vocabulary, embedding model)
only affect whether search can use embeddings.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			out, err := a.printer(cmd, format)
			if err != nil {
				return err
			}

			opts := []preflight.Option{
				preflight.WithIndex(a.cfg.Index.Path, a.cfg.Index.StoreConfig()),
			}
			if a.cfg.EmbedConfig().Provider == embed.ProviderStatic {
				opts = append(opts, preflight.WithVocabulary(a.cfg.Tokenizer.VocabPath, a.cfg.Tokenizer.StripAccents))
			}
			embedder, err := a.newEmbedder()
			if err != nil {
				return err
			}
			opts = append(opts, preflight.WithEmbedder(embedder))

			results := preflight.New(a.dataDir, opts...).RunAll(ctx)
			if err := out.Checks(results); err != nil {
				return err
			}
			if preflight.HasCriticalFailures(results) {
				return verrors.New(verrors.ErrCodeInternal, "required checks failed", nil).
					WithSuggestion("Fix the failed checks above and run 'vaultsearch doctor' again")
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
