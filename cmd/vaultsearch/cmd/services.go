package cmd

import (
	"log/slog"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	"github.com/Aman-CERP/vaultsearch/internal/embed"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/index"
	"github.com/Aman-CERP/vaultsearch/internal/store"
	"github.com/Aman-CERP/vaultsearch/internal/tokenizer"
)

// openIndex opens the configured SQLite index for writing. It takes the
// index lock, so only one writing command runs at a time.
func (a *app) openIndex() (*store.SQLiteIndex, error) {
	return store.Open(a.cfg.Index.Path, a.cfg.Index.StoreConfig())
}

// openIndexReadOnly opens the index without the lock for commands that only
// read, so they work while another process is ingesting.
func (a *app) openIndexReadOnly() (*store.SQLiteIndex, error) {
	cfg := a.cfg.Index.StoreConfig()
	cfg.ReadOnly = true
	return store.Open(a.cfg.Index.Path, cfg)
}

// newEmbedder builds the configured embedder. A static provider whose
// vocabulary cannot be loaded yields an embedder that is never available,
// so indexing and search degrade to keyword-only instead of failing.
func (a *app) newEmbedder() (embed.Embedder, error) {
	ec := a.cfg.EmbedConfig()
	if ec.Provider != embed.ProviderStatic {
		return embed.NewEmbedder(ec, nil)
	}

	tok, err := tokenizer.Load(a.cfg.Tokenizer.VocabPath,
		tokenizer.WithStripAccents(a.cfg.Tokenizer.StripAccents))
	if err != nil {
		a.logger.Warn("vocabulary_unavailable",
			append([]any{slog.String("path", a.cfg.Tokenizer.VocabPath)}, verrors.LogAttrs(err)...)...)
		return embed.Unavailable(string(embed.ProviderStatic), ec.Dimensions, err), nil
	}
	return embed.NewEmbedder(ec, tok)
}

// newBreaker guards query embedding.
func (a *app) newBreaker() *verrors.CircuitBreaker {
	return verrors.NewCircuitBreaker("query_embedding",
		verrors.WithMaxFailures(a.cfg.Embeddings.BreakerFailures),
		verrors.WithResetTimeout(a.cfg.Embeddings.BreakerResetTimeout()))
}

// newCoordinator wires an ingestion coordinator over idx.
func (a *app) newCoordinator(idx store.Writer) (*index.Coordinator, error) {
	chunker, err := chunk.NewTextChunker(a.cfg.Chunking.ChunkerConfig())
	if err != nil {
		return nil, err
	}
	embedder, err := a.newEmbedder()
	if err != nil {
		return nil, err
	}
	return index.NewCoordinator(idx, chunker, embedder, index.WithLogger(a.logger))
}
