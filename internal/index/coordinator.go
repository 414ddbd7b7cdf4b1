// Package index turns item pages into stored chunks and embeddings.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	"github.com/Aman-CERP/vaultsearch/internal/embed"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Chunker splits pages into chunks.
type Chunker interface {
	Chunk(pages []chunk.PageInput) []chunk.Chunk
}

// PageSource produces the plain-text pages of one item. Decryption and text
// extraction happen behind it.
type PageSource func(ctx context.Context) ([]chunk.PageInput, error)

// Item is one unit of batch ingestion.
type Item struct {
	ID    string
	Pages PageSource
}

// ItemReport describes the ingestion of one item.
type ItemReport struct {
	ItemID        string `json:"item_id"`
	Chunks        int    `json:"chunks"`
	Embedded      int    `json:"embedded"`
	EmbedFailures int    `json:"embed_failures"`
}

// BatchReport aggregates an IndexBatch run.
type BatchReport struct {
	Items           int           `json:"items"`
	Chunks          int           `json:"chunks"`
	Embedded        int           `json:"embedded"`
	EmbedFailures   int           `json:"embed_failures"`
	ExtractFailures int           `json:"extract_failures"`
	LexicalOnly     bool          `json:"lexical_only"`
	Cancelled       bool          `json:"cancelled"`
	Duration        time.Duration `json:"duration"`
}

func (r *BatchReport) add(item *ItemReport) {
	r.Items++
	r.Chunks += item.Chunks
	r.Embedded += item.Embedded
	r.EmbedFailures += item.EmbedFailures
}

// BackfillReport describes a Backfill run.
type BackfillReport struct {
	Candidates int  `json:"candidates"`
	Embedded   int  `json:"embedded"`
	Failures   int  `json:"failures"`
	Cancelled  bool `json:"cancelled"`
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator writes items into the index. All mutations are serialized.
type Coordinator struct {
	index    store.Writer
	chunker  Chunker
	embedder embed.Embedder
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewCoordinator creates a coordinator.
func NewCoordinator(index store.Writer, chunker Chunker, embedder embed.Embedder, opts ...CoordinatorOption) (*Coordinator, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: index is required", ErrNilDependency)
	}
	if chunker == nil {
		return nil, fmt.Errorf("%w: chunker is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}

	c := &Coordinator{
		index:    index,
		chunker:  chunker,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IndexItem replaces the stored chunks of itemID with chunks of pages and
// embeds each one. The model is loaded if needed and left loaded. Embedding
// failures are logged and counted; store failures are returned.
func (c *Coordinator) IndexItem(ctx context.Context, itemID string, pages []chunk.PageInput) (*ItemReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	embedEnabled := true
	if err := c.embedder.Load(ctx); err != nil {
		c.logger.Warn("ingest_model_unavailable", verrors.LogAttrs(err)...)
		embedEnabled = false
	}
	return c.indexItem(ctx, itemID, pages, embedEnabled)
}

// IndexBatch ingests items one after another. The model is loaded once before
// the first item and unloaded after the last; if it cannot be loaded every
// item is indexed lexical-only. A failing PageSource skips its item.
//
// Cancellation is checked between items: the batch stops, the report is
// marked cancelled and ctx.Err() is returned. Items already written stay
// indexed. A store error stops the batch and is returned with the partial
// report.
func (c *Coordinator) IndexBatch(ctx context.Context, items []Item) (*BatchReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	report := &BatchReport{}
	defer func() { report.Duration = time.Since(start) }()

	if err := c.embedder.Load(ctx); err != nil {
		c.logger.Warn("ingest_model_unavailable", verrors.LogAttrs(err)...)
		report.LexicalOnly = true
	} else {
		defer c.unload()
	}

	cancelled := func(err error) (*BatchReport, error) {
		report.Cancelled = true
		c.logger.Info("ingest_batch_cancelled",
			slog.Int("done", report.Items),
			slog.Int("total", len(items)))
		return report, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		pages, err := c.extract(ctx, item)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		if err != nil {
			report.ExtractFailures++
			c.logger.Warn("ingest_extract_failed",
				append([]any{slog.String("item_id", item.ID)}, verrors.LogAttrs(err)...)...)
			continue
		}

		itemReport, err := c.indexItem(ctx, item.ID, pages, !report.LexicalOnly)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cancelled(ctxErr)
			}
			return report, err
		}
		report.add(itemReport)
	}

	c.logger.Info("ingest_batch_done",
		slog.Int("items", report.Items),
		slog.Int("chunks", report.Chunks),
		slog.Int("embedded", report.Embedded),
		slog.Int("embed_failures", report.EmbedFailures),
		slog.Int("extract_failures", report.ExtractFailures),
		slog.Bool("lexical_only", report.LexicalOnly),
		slog.Duration("elapsed", time.Since(start)))

	return report, nil
}

func (c *Coordinator) extract(ctx context.Context, item Item) ([]chunk.PageInput, error) {
	if item.Pages == nil {
		return nil, verrors.ValidationError("item has no page source", nil).WithDetail("item_id", item.ID)
	}
	return item.Pages(ctx)
}

func (c *Coordinator) indexItem(ctx context.Context, itemID string, pages []chunk.PageInput, embedEnabled bool) (*ItemReport, error) {
	if itemID == "" {
		return nil, verrors.ValidationError("item id is required", nil)
	}

	report := &ItemReport{ItemID: itemID}

	// Old chunks go in the same transaction, so a failed insert keeps them.
	chunks := c.chunker.Chunk(pages)
	ids, err := c.index.ReplaceChunks(ctx, itemID, chunks)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		c.logger.Debug("ingest_item_empty", slog.String("item_id", itemID))
		return report, nil
	}
	report.Chunks = len(ids)

	if embedEnabled {
		for i, id := range ids {
			if ctx.Err() != nil {
				// Remaining chunks stay lexical-only until Backfill.
				break
			}
			vec, err := c.embedder.Embed(ctx, chunks[i].Text)
			if err != nil {
				report.EmbedFailures++
				c.logger.Warn("ingest_embed_failed",
					append([]any{
						slog.String("item_id", itemID),
						slog.Int("chunk_index", chunks[i].Index),
					}, verrors.LogAttrs(err)...)...)
				continue
			}
			if err := c.index.InsertEmbedding(ctx, id, vec); err != nil {
				return nil, err
			}
			report.Embedded++
		}
	}

	c.logger.Info("ingest_item_done",
		slog.String("item_id", itemID),
		slog.Int("chunks", report.Chunks),
		slog.Int("embedded", report.Embedded),
		slog.Int("embed_failures", report.EmbedFailures))

	return report, nil
}

// RemoveItem deletes an item's chunks and embeddings. Removing an unknown
// item is not an error.
func (c *Coordinator) RemoveItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return verrors.ValidationError("item id is required", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.DeleteChunks(ctx, itemID); err != nil {
		return err
	}
	c.logger.Info("ingest_item_removed", slog.String("item_id", itemID))
	return nil
}

// Reset clears the whole index.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.DeleteAll(ctx); err != nil {
		return err
	}
	c.logger.Info("index_reset")
	return nil
}

// Backfill embeds up to limit chunks that have no vector, for example after
// an ingestion that ran while the model was unavailable. Unlike ingestion,
// a model that cannot be loaded fails the call.
func (c *Coordinator) Backfill(ctx context.Context, limit int) (*BackfillReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.embedder.Load(ctx); err != nil {
		return nil, err
	}
	defer c.unload()

	missing, err := c.index.ChunksMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, err
	}

	report := &BackfillReport{Candidates: len(missing)}
	for _, d := range missing {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			return report, err
		}
		vec, err := c.embedder.Embed(ctx, d.Text)
		if err != nil {
			report.Failures++
			c.logger.Warn("backfill_embed_failed",
				append([]any{slog.Int64("chunk_id", d.ChunkID)}, verrors.LogAttrs(err)...)...)
			continue
		}
		if err := c.index.InsertEmbedding(ctx, d.ChunkID, vec); err != nil {
			return report, err
		}
		report.Embedded++
	}

	c.logger.Info("backfill_done",
		slog.Int("candidates", report.Candidates),
		slog.Int("embedded", report.Embedded),
		slog.Int("failures", report.Failures))

	return report, nil
}

func (c *Coordinator) unload() {
	if err := c.embedder.Unload(); err != nil {
		c.logger.Warn("ingest_model_unload_failed", verrors.LogAttrs(err)...)
	}
}
