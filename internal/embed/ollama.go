package embed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int
	Retry      verrors.RetryConfig
}

// DefaultOllamaConfig returns the config for all-minilm on a local server.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultOllamaModel,
		Dimensions: DefaultDimensions,
		Retry:      verrors.DefaultRetryConfig(),
	}
}

// OllamaEmbedder embeds text with a model served by a local Ollama.
// Ollama tokenizes on its side; the model must produce Dimensions values.
type OllamaEmbedder struct {
	cfg    OllamaConfig
	client *embeddings.EmbedderImpl
	logger *slog.Logger

	mu     sync.RWMutex
	loaded bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates the client. No request is made until Load.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeConfigInvalid, "create ollama client", err)
	}
	return newOllamaWithClient(cfg, llm)
}

func newOllamaWithClient(cfg OllamaConfig, client embeddings.EmbedderClient) (*OllamaEmbedder, error) {
	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeConfigInvalid, "create embedder", err)
	}
	return &OllamaEmbedder{
		cfg:    cfg,
		client: impl,
		logger: slog.Default().With("component", "ollama_embedder"),
	}, nil
}

// Load probes the server with a test embedding, retrying transient failures.
func (e *OllamaEmbedder) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}

	probe, err := verrors.RetryWithResult(ctx, e.cfg.Retry, func() ([]float32, error) {
		return e.client.EmbedQuery(ctx, "ping")
	})
	if err != nil {
		return modelUnavailable(e.cfg.Model, "ollama is not reachable at "+e.cfg.Host, err)
	}
	if len(probe) != e.cfg.Dimensions {
		return modelUnavailable(e.cfg.Model, "model has the wrong dimensions",
			verrors.New(verrors.ErrCodeDimensionMismatch, "probe vector size does not match index", nil).
				WithDetail("got", itoa(len(probe))).
				WithDetail("want", itoa(e.cfg.Dimensions)))
	}

	e.loaded = true
	e.logger.Debug("model_loaded", slog.String("model", e.cfg.Model), slog.String("host", e.cfg.Host))
	return nil
}

// Unload forgets the probe. Ollama evicts idle models on its own.
func (e *OllamaEmbedder) Unload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = false
	return nil
}

// Embed returns the normalized vector for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	if !loaded {
		return nil, modelUnavailable(e.cfg.Model, "model is not loaded", nil)
	}

	raw, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeEmbeddingFailed, "ollama embed", err).
			WithDetail("model", e.cfg.Model)
	}
	return checkOutput(e.cfg.Model, raw, e.cfg.Dimensions)
}

// Dimensions returns the configured vector size.
func (e *OllamaEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

// ModelName returns the Ollama model tag.
func (e *OllamaEmbedder) ModelName() string {
	return e.cfg.Model
}
