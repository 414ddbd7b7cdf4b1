// Package store is the durable index: chunk rows, the FTS5 lexical index kept
// in sync by triggers, and one embedding vector per chunk, all in one SQLite
// database.
package store

import (
	"context"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	"github.com/Aman-CERP/vaultsearch/internal/vector"
)

// LexicalHit is one FTS5 match. Lower Rank is better (SQLite bm25()).
type LexicalHit struct {
	ChunkID    int64
	ItemID     string
	Text       string
	PageNumber *int
	Rank       float64
}

// StoredEmbedding is a persisted vector with the item it belongs to.
type StoredEmbedding struct {
	ChunkID int64
	ItemID  string
	Vector  []float32
}

// ChunkDetail is a stored chunk row.
type ChunkDetail struct {
	ChunkID    int64
	ItemID     string
	ChunkIndex int
	PageNumber *int
	Text       string
	WordCount  int
}

// Stats summarizes index contents.
type Stats struct {
	Items      int `json:"items"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
}

// Reader is the read side used by the search engine.
type Reader interface {
	// FTSSearch returns up to limit lexical matches ordered by rank ascending.
	FTSSearch(ctx context.Context, query string, limit int) ([]LexicalHit, error)

	// LoadAllEmbeddings returns every well-formed stored vector.
	LoadAllEmbeddings(ctx context.Context) ([]StoredEmbedding, error)

	// ChunkDetail returns one chunk, or ErrChunkNotFound.
	ChunkDetail(ctx context.Context, chunkID int64) (*ChunkDetail, error)
}

// Writer is the mutation side used by the ingestion coordinator.
type Writer interface {
	// InsertChunks stores chunks in order and returns their IDs, aligned with the input.
	InsertChunks(ctx context.Context, itemID string, chunks []chunk.Chunk) ([]int64, error)

	// InsertEmbedding stores or replaces the vector for a chunk.
	InsertEmbedding(ctx context.Context, chunkID int64, vec []float32) error

	// ReplaceChunks atomically swaps an item's chunks for new ones and returns
	// their IDs. On failure the previous chunks are left intact.
	ReplaceChunks(ctx context.Context, itemID string, chunks []chunk.Chunk) ([]int64, error)

	// DeleteChunks removes an item's chunks and their embeddings. Idempotent.
	DeleteChunks(ctx context.Context, itemID string) error

	// DeleteAll clears chunks and embeddings.
	DeleteAll(ctx context.Context) error

	// ChunksMissingEmbeddings lists up to limit chunks without a vector.
	ChunksMissingEmbeddings(ctx context.Context, limit int) ([]ChunkDetail, error)
}

// Index is the full store.
type Index interface {
	Reader
	Writer

	// ItemIDs returns the distinct indexed items.
	ItemIDs(ctx context.Context) ([]string, error)

	// Stats returns row counts.
	Stats(ctx context.Context) (*Stats, error)

	// Close checkpoints and releases the database.
	Close() error
}

// Config configures a SQLiteIndex.
type Config struct {
	// Dimensions is the required vector length.
	Dimensions int

	// ReadConnections sizes the reader pool of file-backed stores.
	ReadConnections int

	// BusyTimeoutMS is how long SQLite waits on a locked database.
	BusyTimeoutMS int

	// ReadOnly opens only the query-only reader pool of a file-backed store,
	// without the writer lock or the integrity check, so it can run beside an
	// ingesting process. Mutations fail with ErrReadOnly. Ignored for
	// in-memory stores.
	ReadOnly bool
}

// DefaultConfig returns the defaults for a 384-dimension model.
func DefaultConfig() Config {
	return Config{
		Dimensions:      vector.Dimensions,
		ReadConnections: 4,
		BusyTimeoutMS:   5000,
	}
}
