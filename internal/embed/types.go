package embed

import (
	"context"
	"fmt"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/vector"
)

// Model constants for all-MiniLM-L6-v2.
const (
	// DefaultDimensions is the embedding size.
	DefaultDimensions = vector.Dimensions

	// DefaultMaxTokens is the model's sequence length, special tokens included.
	DefaultMaxTokens = 128

	// DefaultOllamaModel is the Ollama tag for all-MiniLM-L6-v2.
	DefaultOllamaModel = "all-minilm"

	// DefaultOllamaHost is Ollama's local endpoint.
	DefaultOllamaHost = "http://localhost:11434"
)

// Embedder turns text into an L2-normalized vector. The model behind it is
// loaded explicitly so ingestion can hold it for a whole batch.
type Embedder interface {
	// Load makes the model ready. Calling it on a loaded model is a no-op.
	Load(ctx context.Context) error

	// Unload releases model memory. Calling it on an unloaded model is a no-op.
	Unload() error

	// Embed returns the vector for text. Fails with ErrModelUnavailable
	// when the model is not loaded.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string
}

// ErrModelUnavailable marks a model that is not loaded or cannot be reached.
var ErrModelUnavailable = verrors.Sentinel(verrors.ErrCodeModelUnavailable)

func modelUnavailable(model, reason string, cause error) error {
	return verrors.New(verrors.ErrCodeModelUnavailable, reason, cause).WithDetail("model", model)
}

// checkOutput validates a raw model vector and normalizes it.
func checkOutput(model string, vec []float32, dims int) ([]float32, error) {
	if len(vec) != dims {
		return nil, verrors.New(verrors.ErrCodeModelOutput,
			fmt.Sprintf("model returned %d dimensions, want %d", len(vec), dims), nil).
			WithDetail("model", model)
	}
	if vector.Norm(vec) == 0 {
		return nil, verrors.New(verrors.ErrCodeModelOutput, "model returned a zero vector", nil).
			WithDetail("model", model)
	}
	return vector.Normalize(vec), nil
}
