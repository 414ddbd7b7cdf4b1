package embed

import (
	"fmt"
	"strconv"
	"strings"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/tokenizer"
)

// ProviderType selects an embedding backend.
type ProviderType string

const (
	// ProviderStatic runs the offline hashing model over WordPiece tokens.
	ProviderStatic ProviderType = "static"

	// ProviderOllama calls a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// Config selects and sizes an embedder.
type Config struct {
	Provider   ProviderType
	Model      string
	OllamaHost string
	Dimensions int
	MaxTokens  int
	CacheSize  int // 0 disables the query cache
}

// ParseProvider maps a config string to a ProviderType.
func ParseProvider(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderStatic, ProviderOllama:
		return p, nil
	case "":
		return ProviderStatic, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (want static or ollama)", s)
	}
}

// NewEmbedder builds the configured embedder. The static provider needs tok.
// The returned embedder is not loaded yet.
func NewEmbedder(cfg Config, tok *tokenizer.Tokenizer) (Embedder, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	var e Embedder
	switch cfg.Provider {
	case ProviderStatic, "":
		if tok == nil {
			return nil, verrors.New(verrors.ErrCodeConfigInvalid, "static embedder requires a tokenizer vocabulary", nil).
				WithSuggestion("set tokenizer.vocab_path")
		}
		wp, err := NewWordPieceEmbedder(tok, NewStaticRunner(cfg.Dimensions), cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		e = wp
	case ProviderOllama:
		oc := DefaultOllamaConfig()
		oc.Dimensions = cfg.Dimensions
		if cfg.OllamaHost != "" {
			oc.Host = cfg.OllamaHost
		}
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		oe, err := NewOllamaEmbedder(oc)
		if err != nil {
			return nil, err
		}
		e = oe
	default:
		return nil, verrors.New(verrors.ErrCodeConfigInvalid, "unknown embedding provider "+string(cfg.Provider), nil)
	}

	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
