package index

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	"github.com/Aman-CERP/vaultsearch/internal/embed"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/store"
)

const testDims = 3

// stubEmbedder returns a fixed unit vector and fails on texts containing failOn.
type stubEmbedder struct {
	loadErr error
	failOn  string
	loaded  atomic.Bool
	loads   atomic.Int32
	unloads atomic.Int32
	embeds  atomic.Int32
}

func (s *stubEmbedder) Load(context.Context) error {
	s.loads.Add(1)
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded.Store(true)
	return nil
}

func (s *stubEmbedder) Unload() error {
	s.unloads.Add(1)
	s.loaded.Store(false)
	return nil
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.embeds.Add(1)
	if !s.loaded.Load() {
		return nil, embed.ErrModelUnavailable
	}
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, verrors.New(verrors.ErrCodeEmbeddingFailed, "inference failed", nil)
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) Dimensions() int   { return testDims }
func (s *stubEmbedder) ModelName() string { return "stub" }

func newTestCoordinator(t *testing.T, emb embed.Embedder) (*Coordinator, *store.SQLiteIndex) {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.Dimensions = testDims
	idx, err := store.Open("", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	chunker, err := chunk.NewTextChunker(chunk.DefaultConfig())
	require.NoError(t, err)

	c, err := NewCoordinator(idx, chunker, emb)
	require.NoError(t, err)
	return c, idx
}

func pages(texts ...string) []chunk.PageInput {
	out := make([]chunk.PageInput, len(texts))
	for i, text := range texts {
		out[i] = chunk.PageInput{Text: text, PageNumber: chunk.IntPtr(i + 1)}
	}
	return out
}

func staticPages(texts ...string) PageSource {
	return func(context.Context) ([]chunk.PageInput, error) {
		return pages(texts...), nil
	}
}

func stats(t *testing.T, idx *store.SQLiteIndex) *store.Stats {
	t.Helper()
	s, err := idx.Stats(context.Background())
	require.NoError(t, err)
	return s
}

func TestNewCoordinator_NilDependencies(t *testing.T) {
	chunker, err := chunk.NewTextChunker(chunk.DefaultConfig())
	require.NoError(t, err)
	idx, err := store.Open("", store.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, err = NewCoordinator(nil, chunker, &stubEmbedder{})
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewCoordinator(idx, nil, &stubEmbedder{})
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewCoordinator(idx, chunker, nil)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestCoordinator_IndexItem_StoresChunksAndEmbeddings(t *testing.T) {
	// Given: a coordinator with a working model
	emb := &stubEmbedder{}
	c, idx := newTestCoordinator(t, emb)

	// When: indexing a two-page item
	report, err := c.IndexItem(context.Background(), "statement", pages("bank statement march", "bank statement april"))

	// Then: one chunk per short page, each embedded
	require.NoError(t, err)
	assert.Equal(t, &ItemReport{ItemID: "statement", Chunks: 2, Embedded: 2}, report)
	assert.Equal(t, &store.Stats{Items: 1, Chunks: 2, Embeddings: 2}, stats(t, idx))

	hits, err := idx.FTSSearch(context.Background(), "april", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.NotNil(t, hits[0].PageNumber)
	assert.Equal(t, 2, *hits[0].PageNumber)
}

func TestCoordinator_IndexItem_ReplacesPreviousChunks(t *testing.T) {
	c, idx := newTestCoordinator(t, &stubEmbedder{})
	ctx := context.Background()

	_, err := c.IndexItem(ctx, "note", pages("first draft", "second page", "third page"))
	require.NoError(t, err)

	// When: the item is indexed again with fewer pages
	_, err = c.IndexItem(ctx, "note", pages("final version"))
	require.NoError(t, err)

	// Then: only the new content remains
	assert.Equal(t, &store.Stats{Items: 1, Chunks: 1, Embeddings: 1}, stats(t, idx))
	hits, err := idx.FTSSearch(ctx, "draft", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// duplicatingWriter repeats the first chunk of every replacement, so the
// insert fails on the unique (item_id, chunk_index) key mid-transaction.
type duplicatingWriter struct {
	*store.SQLiteIndex
}

func (d duplicatingWriter) ReplaceChunks(ctx context.Context, itemID string, chunks []chunk.Chunk) ([]int64, error) {
	if len(chunks) > 0 {
		chunks = append(chunks[:len(chunks):len(chunks)], chunks[0])
	}
	return d.SQLiteIndex.ReplaceChunks(ctx, itemID, chunks)
}

func TestCoordinator_IndexItem_FailedReplaceKeepsPreviousChunks(t *testing.T) {
	// Given: an item indexed once
	c, idx := newTestCoordinator(t, &stubEmbedder{})
	ctx := context.Background()
	_, err := c.IndexItem(ctx, "note", pages("first draft"))
	require.NoError(t, err)

	chunker, err := chunk.NewTextChunker(chunk.DefaultConfig())
	require.NoError(t, err)
	failing, err := NewCoordinator(duplicatingWriter{idx}, chunker, &stubEmbedder{})
	require.NoError(t, err)

	// When: re-indexing fails while inserting the new chunks
	_, err = failing.IndexItem(ctx, "note", pages("final version"))

	// Then: the error surfaces and the previous chunk is still indexed
	require.Error(t, err)
	assert.Equal(t, store.StageInsert, store.StageOf(err))
	assert.Equal(t, &store.Stats{Items: 1, Chunks: 1, Embeddings: 1}, stats(t, idx))
	hits, err := idx.FTSSearch(ctx, "draft", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestCoordinator_IndexItem_EmbeddingFailuresAreCounted(t *testing.T) {
	// Given: a model that fails on one chunk
	emb := &stubEmbedder{failOn: "corrupted"}
	c, idx := newTestCoordinator(t, emb)

	// When: indexing
	report, err := c.IndexItem(context.Background(), "scan", pages("clean page text", "corrupted page text"))

	// Then: no error; the failed chunk is stored without a vector
	require.NoError(t, err)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 1, report.Embedded)
	assert.Equal(t, 1, report.EmbedFailures)
	assert.Equal(t, &store.Stats{Items: 1, Chunks: 2, Embeddings: 1}, stats(t, idx))

	hits, err := idx.FTSSearch(context.Background(), "corrupted", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "lexical search still covers the unembedded chunk")
}

func TestCoordinator_IndexItem_ModelUnavailable_LexicalOnly(t *testing.T) {
	emb := &stubEmbedder{loadErr: embed.ErrModelUnavailable}
	c, idx := newTestCoordinator(t, emb)

	report, err := c.IndexItem(context.Background(), "receipt", pages("coffee receipt"))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 0, report.Embedded)
	assert.Equal(t, int32(0), emb.embeds.Load())
	assert.Equal(t, &store.Stats{Items: 1, Chunks: 1, Embeddings: 0}, stats(t, idx))
}

func TestCoordinator_IndexItem_EmptyPages(t *testing.T) {
	c, idx := newTestCoordinator(t, &stubEmbedder{})
	ctx := context.Background()
	_, err := c.IndexItem(ctx, "photo", pages("old caption"))
	require.NoError(t, err)

	report, err := c.IndexItem(ctx, "photo", pages("   ", ""))

	require.NoError(t, err)
	assert.Equal(t, 0, report.Chunks)
	assert.Equal(t, 0, stats(t, idx).Chunks)
}

func TestCoordinator_IndexItem_RequiresItemID(t *testing.T) {
	c, _ := newTestCoordinator(t, &stubEmbedder{})

	_, err := c.IndexItem(context.Background(), "", pages("text"))

	assert.True(t, verrors.HasCode(err, verrors.ErrCodeInvalidInput))
}

func TestCoordinator_IndexBatch_LoadsModelOnce(t *testing.T) {
	// Given: three items
	emb := &stubEmbedder{}
	c, idx := newTestCoordinator(t, emb)
	items := []Item{
		{ID: "a", Pages: staticPages("alpha page")},
		{ID: "b", Pages: staticPages("beta page", "beta second")},
		{ID: "c", Pages: staticPages("gamma page")},
	}

	// When: ingesting them as a batch
	report, err := c.IndexBatch(context.Background(), items)

	// Then: the model is loaded once and released at the end
	require.NoError(t, err)
	assert.Equal(t, 3, report.Items)
	assert.Equal(t, 4, report.Chunks)
	assert.Equal(t, 4, report.Embedded)
	assert.False(t, report.Cancelled)
	assert.False(t, report.LexicalOnly)
	assert.Equal(t, int32(1), emb.loads.Load())
	assert.Equal(t, int32(1), emb.unloads.Load())
	assert.Equal(t, 3, stats(t, idx).Items)
}

func TestCoordinator_IndexBatch_ExtractFailureSkipsItem(t *testing.T) {
	c, idx := newTestCoordinator(t, &stubEmbedder{})
	items := []Item{
		{ID: "good", Pages: staticPages("readable text")},
		{ID: "bad", Pages: func(context.Context) ([]chunk.PageInput, error) {
			return nil, errors.New("decrypt failed")
		}},
		{ID: "nil-source"},
		{ID: "also-good", Pages: staticPages("more text")},
	}

	report, err := c.IndexBatch(context.Background(), items)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Items)
	assert.Equal(t, 2, report.ExtractFailures)
	ids, err := idx.ItemIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"also-good", "good"}, ids)
}

func TestCoordinator_IndexBatch_ModelUnavailable(t *testing.T) {
	emb := &stubEmbedder{loadErr: embed.ErrModelUnavailable}
	c, idx := newTestCoordinator(t, emb)

	report, err := c.IndexBatch(context.Background(), []Item{
		{ID: "a", Pages: staticPages("alpha")},
		{ID: "b", Pages: staticPages("beta")},
	})

	require.NoError(t, err)
	assert.True(t, report.LexicalOnly)
	assert.Equal(t, 2, report.Items)
	assert.Equal(t, 0, report.Embedded)
	assert.Equal(t, int32(0), emb.unloads.Load())
	assert.Equal(t, &store.Stats{Items: 2, Chunks: 2, Embeddings: 0}, stats(t, idx))
}

func TestCoordinator_IndexBatch_CancelBetweenItems(t *testing.T) {
	// Given: a batch whose second item cancels the context while extracting
	emb := &stubEmbedder{}
	c, idx := newTestCoordinator(t, emb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	items := []Item{
		{ID: "first", Pages: staticPages("first item")},
		{ID: "second", Pages: func(context.Context) ([]chunk.PageInput, error) {
			cancel()
			return pages("second item"), nil
		}},
		{ID: "third", Pages: staticPages("third item")},
	}

	// When: ingesting
	report, err := c.IndexBatch(ctx, items)

	// Then: the batch stops after the first item and reports cancellation
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 1, report.Items)
	assert.Equal(t, int32(1), emb.unloads.Load(), "model released on cancellation")

	ids, err := idx.ItemIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, ids)
}

func TestCoordinator_RemoveItem(t *testing.T) {
	c, idx := newTestCoordinator(t, &stubEmbedder{})
	ctx := context.Background()
	_, err := c.IndexItem(ctx, "keep", pages("kept text"))
	require.NoError(t, err)
	_, err = c.IndexItem(ctx, "drop", pages("dropped text"))
	require.NoError(t, err)

	require.NoError(t, c.RemoveItem(ctx, "drop"))
	require.NoError(t, c.RemoveItem(ctx, "never-indexed"))

	assert.Equal(t, &store.Stats{Items: 1, Chunks: 1, Embeddings: 1}, stats(t, idx))
	assert.True(t, verrors.HasCode(c.RemoveItem(ctx, ""), verrors.ErrCodeInvalidInput))
}

func TestCoordinator_Reset(t *testing.T) {
	c, idx := newTestCoordinator(t, &stubEmbedder{})
	ctx := context.Background()
	_, err := c.IndexItem(ctx, "a", pages("one", "two"))
	require.NoError(t, err)

	require.NoError(t, c.Reset(ctx))

	assert.Equal(t, &store.Stats{}, stats(t, idx))
}

func TestCoordinator_Backfill(t *testing.T) {
	// Given: items indexed while the model was down
	emb := &stubEmbedder{loadErr: embed.ErrModelUnavailable}
	c, idx := newTestCoordinator(t, emb)
	ctx := context.Background()
	_, err := c.IndexBatch(ctx, []Item{
		{ID: "a", Pages: staticPages("alpha", "alpha two")},
		{ID: "b", Pages: staticPages("beta")},
	})
	require.NoError(t, err)
	require.Equal(t, 0, stats(t, idx).Embeddings)

	t.Run("fails while the model is down", func(t *testing.T) {
		_, err := c.Backfill(ctx, 0)
		assert.ErrorIs(t, err, embed.ErrModelUnavailable)
	})

	t.Run("limited run", func(t *testing.T) {
		emb.loadErr = nil
		report, err := c.Backfill(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, &BackfillReport{Candidates: 2, Embedded: 2}, report)
		assert.Equal(t, 2, stats(t, idx).Embeddings)
	})

	t.Run("remaining chunks", func(t *testing.T) {
		report, err := c.Backfill(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Embedded)
		assert.Equal(t, 3, stats(t, idx).Embeddings)
	})
}
