package embed

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/vaultsearch/internal/tokenizer"
)

var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"the", "tax", "return", "for", "2023", "holiday", "photos", "beach",
	"mortgage", "statement", "bank", "##s", ".",
}

func newTestTokenizer(t *testing.T) *tokenizer.Tokenizer {
	t.Helper()
	tok, err := tokenizer.New(strings.NewReader(strings.Join(testVocab, "\n")))
	require.NoError(t, err)
	return tok
}

// fakeClient implements langchaingo's embeddings.EmbedderClient.
type fakeClient struct {
	vec   []float32
	err   error
	calls atomic.Int32
	texts []string
}

func (f *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), f.vec...)
	}
	return out, nil
}

// countingEmbedder records Embed calls.
type countingEmbedder struct {
	calls atomic.Int32
	model string
}

func (c *countingEmbedder) Load(context.Context) error { return nil }
func (c *countingEmbedder) Unload() error              { return nil }
func (c *countingEmbedder) Dimensions() int            { return 2 }
func (c *countingEmbedder) ModelName() string          { return c.model }
func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return []float32{float32(len(text)), 1}, nil
}
