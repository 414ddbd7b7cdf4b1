package embed

import (
	"context"
	"sync"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/tokenizer"
)

// ModelRunner executes a sentence embedding model on token IDs.
// It returns the pooled, not necessarily normalized, sentence vector.
type ModelRunner interface {
	Load(ctx context.Context) error
	Unload() error
	Run(ctx context.Context, ids, mask []int32) ([]float32, error)
	Dimensions() int
	Name() string
}

// WordPieceEmbedder tokenizes text and feeds the IDs to a ModelRunner.
type WordPieceEmbedder struct {
	tok       *tokenizer.Tokenizer
	runner    ModelRunner
	maxTokens int

	mu     sync.RWMutex
	loaded bool
}

var _ Embedder = (*WordPieceEmbedder)(nil)

// NewWordPieceEmbedder creates an embedder over the given tokenizer and runner.
func NewWordPieceEmbedder(tok *tokenizer.Tokenizer, runner ModelRunner, maxTokens int) (*WordPieceEmbedder, error) {
	if tok == nil || runner == nil {
		return nil, verrors.New(verrors.ErrCodeInvalidInput, "tokenizer and model runner are required", nil)
	}
	if maxTokens <= 2 {
		maxTokens = DefaultMaxTokens
	}
	return &WordPieceEmbedder{tok: tok, runner: runner, maxTokens: maxTokens}, nil
}

// Load loads the runner once.
func (e *WordPieceEmbedder) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}
	if err := e.runner.Load(ctx); err != nil {
		return modelUnavailable(e.runner.Name(), "load model", err)
	}
	e.loaded = true
	return nil
}

// Unload releases the runner.
func (e *WordPieceEmbedder) Unload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil
	}
	e.loaded = false
	return e.runner.Unload()
}

// Embed tokenizes text to the model's sequence length and runs the model.
func (e *WordPieceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return nil, modelUnavailable(e.runner.Name(), "model is not loaded", nil)
	}

	ids := e.tok.Tokenize(text, e.maxTokens)
	mask := e.tok.AttentionMask(ids)
	raw, err := e.runner.Run(ctx, ids, mask)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeEmbeddingFailed, "run model", err).
			WithDetail("model", e.runner.Name())
	}
	return checkOutput(e.runner.Name(), raw, e.runner.Dimensions())
}

// Dimensions returns the runner's output size.
func (e *WordPieceEmbedder) Dimensions() int {
	return e.runner.Dimensions()
}

// ModelName returns the runner name.
func (e *WordPieceEmbedder) ModelName() string {
	return e.runner.Name()
}
