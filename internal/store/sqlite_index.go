package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver with FTS5

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/vector"
)

// SQLiteIndex implements Index on SQLite in WAL mode.
//
// All mutations go through one writer connection guarded by writeMu, so
// concurrent writers queue. File-backed stores read through a separate
// query-only pool and are not blocked by an ingestion batch. An in-memory
// store (path "") uses its single connection for both. A read-only store has
// no writer at all.
type SQLiteIndex struct {
	mu      sync.RWMutex // guards closed and the handles
	writeMu sync.Mutex
	writer  *sql.DB
	reader  *sql.DB
	lock    *FileLock
	path    string
	config  Config
	closed  bool
}

// Verify interface implementation at compile time
var _ Index = (*SQLiteIndex)(nil)

// Open opens or creates the index at path. An empty path creates an
// in-memory index for tests.
func Open(path string, cfg Config) (*SQLiteIndex, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = vector.Dimensions
	}
	if cfg.ReadConnections <= 0 {
		cfg.ReadConnections = 1
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}

	idx := &SQLiteIndex{path: path, config: cfg}
	var err error
	switch {
	case path == "":
		err = idx.openMemory()
	case cfg.ReadOnly:
		err = idx.openReadOnly()
	default:
		err = idx.openFile()
	}
	if err != nil {
		return nil, err
	}
	if idx.writer == nil {
		return idx, nil
	}

	if _, err := idx.writer.Exec(schema); err != nil {
		_ = idx.closeHandles()
		return nil, stageError(StageOpen, "initialize schema", err)
	}

	return idx, nil
}

func (s *SQLiteIndex) openMemory() error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return stageError(StageOpen, "open in-memory database", err)
	}
	// One connection: every new connection would see a different database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return stageError(StageOpen, "set pragma", err)
		}
	}

	s.writer = db
	s.reader = db
	return nil
}

func (s *SQLiteIndex) openFile() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stageError(StageOpen, "create directory "+dir, err)
	}

	s.lock = NewFileLock(s.path)
	acquired, err := s.lock.TryLock()
	if err != nil {
		return stageError(StageOpen, "lock index", err)
	}
	if !acquired {
		return verrors.New(verrors.ErrCodeStoreLocked, "index is in use by another process", nil).
			WithDetail("lock", s.lock.Path()).
			WithSuggestion("close the other vaultsearch process and retry")
	}

	if validErr := CheckIntegrity(s.path); validErr != nil {
		slog.Warn("index_store_corrupted",
			slog.String("path", s.path),
			slog.String("error", validErr.Error()))

		if removeErr := os.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) {
			_ = s.lock.Unlock()
			return verrors.New(verrors.ErrCodeCorruptIndex, "index is corrupted and cannot be removed", removeErr).
				WithDetail("path", s.path)
		}
		_ = os.Remove(s.path + "-wal")
		_ = os.Remove(s.path + "-shm")

		slog.Info("index_store_cleared",
			slog.String("path", s.path),
			slog.String("reason", "corruption detected, items must be re-indexed"))
	}

	pragmas := s.dsnParams()

	writer, err := sql.Open("sqlite", s.path+pragmas)
	if err != nil {
		_ = s.lock.Unlock()
		return stageError(StageOpen, "open database", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := writer.Exec(pragma); err != nil {
			_ = writer.Close()
			_ = s.lock.Unlock()
			return stageError(StageOpen, "set pragma", err)
		}
	}

	reader, err := sql.Open("sqlite", s.path+pragmas+"&_pragma=query_only(1)")
	if err != nil {
		_ = writer.Close()
		_ = s.lock.Unlock()
		return stageError(StageOpen, "open reader pool", err)
	}
	reader.SetMaxOpenConns(s.config.ReadConnections)
	reader.SetMaxIdleConns(s.config.ReadConnections)

	s.writer = writer
	s.reader = reader
	return nil
}

// openReadOnly opens the reader pool only. A file that does not exist yet is
// first created with its schema by a short-lived writer.
func (s *SQLiteIndex) openReadOnly() error {
	if info, err := os.Stat(s.path); err != nil || info.Size() == 0 {
		cfg := s.config
		cfg.ReadOnly = false
		created, err := Open(s.path, cfg)
		if err != nil {
			return err
		}
		if err := created.Close(); err != nil {
			return stageError(StageOpen, "initialize index", err)
		}
	}

	reader, err := sql.Open("sqlite", s.path+s.dsnParams()+"&_pragma=query_only(1)")
	if err != nil {
		return stageError(StageOpen, "open reader pool", err)
	}
	reader.SetMaxOpenConns(s.config.ReadConnections)
	reader.SetMaxIdleConns(s.config.ReadConnections)

	s.reader = reader
	return nil
}

func (s *SQLiteIndex) dsnParams() string {
	return fmt.Sprintf("?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", s.config.BusyTimeoutMS)
}

// CheckIntegrity runs SQLite's integrity check on an index file and verifies
// the required tables exist. It never modifies the file. Returns nil when the
// file does not exist yet.
func CheckIntegrity(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	for _, table := range requiredTables {
		var count int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			return fmt.Errorf("cannot query schema: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("table %q missing", table)
		}
	}
	return nil
}

// acquire holds the lifecycle read lock while the store is open. The caller
// must call release when done.
func (s *SQLiteIndex) acquire() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errNotOpen()
	}
	return nil
}

func (s *SQLiteIndex) release() {
	s.mu.RUnlock()
}

// acquireWriter is acquire for mutations; it fails on a read-only store.
func (s *SQLiteIndex) acquireWriter() error {
	if err := s.acquire(); err != nil {
		return err
	}
	if s.writer == nil {
		s.release()
		return verrors.New(verrors.ErrCodeStoreExecFailed, "write to index", ErrReadOnly).
			WithDetail("stage", string(StageExec)).
			WithSuggestion("reopen the index without read-only mode")
	}
	return nil
}

// InsertChunks stores chunks of one item in a single transaction.
func (s *SQLiteIndex) InsertChunks(ctx context.Context, itemID string, chunks []chunk.Chunk) ([]int64, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	return s.writeChunks(ctx, itemID, chunks, false)
}

// ReplaceChunks deletes an item's chunks and inserts the new ones in one
// transaction. An empty chunks list just removes the item.
func (s *SQLiteIndex) ReplaceChunks(ctx context.Context, itemID string, chunks []chunk.Chunk) ([]int64, error) {
	return s.writeChunks(ctx, itemID, chunks, true)
}

func (s *SQLiteIndex) writeChunks(ctx context.Context, itemID string, chunks []chunk.Chunk, replace bool) ([]int64, error) {
	if err := s.acquireWriter(); err != nil {
		return nil, err
	}
	defer s.release()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, stageError(StageExec, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE item_id = ?`, itemID); err != nil {
			return nil, stageError(StageExec, "delete chunks of "+itemID, err)
		}
	}

	ids := make([]int64, 0, len(chunks))
	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (item_id, chunk_index, page_number, text_content, word_count)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return nil, stageError(StagePrepare, "prepare chunk insert", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			var page any
			if c.PageNumber != nil {
				page = *c.PageNumber
			}
			res, err := stmt.ExecContext(ctx, itemID, c.Index, page, c.Text, c.WordCount)
			if err != nil {
				return nil, stageError(StageInsert, fmt.Sprintf("insert chunk %d of %s", c.Index, itemID), err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return nil, stageError(StageInsert, "read chunk id", err)
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, stageError(StageExec, "commit chunks", err)
	}
	return ids, nil
}

// InsertEmbedding stores or replaces the vector for a chunk.
func (s *SQLiteIndex) InsertEmbedding(ctx context.Context, chunkID int64, vec []float32) error {
	if len(vec) != s.config.Dimensions {
		return verrors.New(verrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector has %d dimensions, index expects %d", len(vec), s.config.Dimensions), nil)
	}
	if err := s.acquireWriter(); err != nil {
		return err
	}
	defer s.release()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stmt, err := s.writer.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector) VALUES (?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET vector = excluded.vector`)
	if err != nil {
		return stageError(StagePrepare, "prepare embedding insert", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, chunkID, vector.Encode(vec)); err != nil {
		return stageError(StageInsert, fmt.Sprintf("insert embedding for chunk %d", chunkID), err)
	}
	return nil
}

// DeleteChunks removes an item's chunks. Embeddings go by cascade and the
// FTS rows by trigger.
func (s *SQLiteIndex) DeleteChunks(ctx context.Context, itemID string) error {
	if err := s.acquireWriter(); err != nil {
		return err
	}
	defer s.release()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.writer.ExecContext(ctx, `DELETE FROM chunks WHERE item_id = ?`, itemID); err != nil {
		return stageError(StageExec, "delete chunks of "+itemID, err)
	}
	return nil
}

// DeleteAll clears both tables.
func (s *SQLiteIndex) DeleteAll(ctx context.Context) error {
	if err := s.acquireWriter(); err != nil {
		return err
	}
	defer s.release()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return stageError(StageExec, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM embeddings`, `DELETE FROM chunks`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return stageError(StageExec, stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return stageError(StageExec, "commit reset", err)
	}
	return nil
}

// FTSSearch runs a sanitized prefix query against the lexical index.
func (s *SQLiteIndex) FTSSearch(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	match := BuildMatchQuery(query)
	if match == "" || limit <= 0 {
		return []LexicalHit{}, nil
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	// bm25() is negative; more negative is a better match.
	rows, err := s.reader.QueryContext(ctx, `
		SELECT c.id, c.item_id, c.text_content, c.page_number, bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, stageError(StageExec, "lexical search", err)
	}
	defer rows.Close()

	hits := []LexicalHit{}
	for rows.Next() {
		var hit LexicalHit
		var page sql.NullInt64
		if err := rows.Scan(&hit.ChunkID, &hit.ItemID, &hit.Text, &page, &hit.Rank); err != nil {
			return nil, stageError(StageExec, "scan lexical hit", err)
		}
		hit.PageNumber = pageFromNull(page)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, stageError(StageExec, "lexical search", err)
	}
	return hits, nil
}

// LoadAllEmbeddings scans every stored vector. Rows with a malformed blob
// are skipped.
func (s *SQLiteIndex) LoadAllEmbeddings(ctx context.Context) ([]StoredEmbedding, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	rows, err := s.reader.QueryContext(ctx, `
		SELECT e.chunk_id, c.item_id, e.vector
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id`)
	if err != nil {
		return nil, stageError(StageExec, "load embeddings", err)
	}
	defer rows.Close()

	var out []StoredEmbedding
	skipped := 0
	for rows.Next() {
		var emb StoredEmbedding
		var blob []byte
		if err := rows.Scan(&emb.ChunkID, &emb.ItemID, &blob); err != nil {
			return nil, stageError(StageExec, "scan embedding", err)
		}
		vec, err := vector.Decode(blob, s.config.Dimensions)
		if err != nil {
			skipped++
			continue
		}
		emb.Vector = vec
		out = append(out, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, stageError(StageExec, "load embeddings", err)
	}
	if skipped > 0 {
		slog.Debug("embeddings_skipped_malformed", slog.Int("count", skipped))
	}
	return out, nil
}

// ChunkDetail returns one chunk row.
func (s *SQLiteIndex) ChunkDetail(ctx context.Context, chunkID int64) (*ChunkDetail, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	var d ChunkDetail
	var page sql.NullInt64
	err := s.reader.QueryRowContext(ctx, `
		SELECT id, item_id, chunk_index, page_number, text_content, word_count
		FROM chunks WHERE id = ?`, chunkID).
		Scan(&d.ChunkID, &d.ItemID, &d.ChunkIndex, &page, &d.Text, &d.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChunkNotFound
	}
	if err != nil {
		return nil, stageError(StageExec, fmt.Sprintf("load chunk %d", chunkID), err)
	}
	d.PageNumber = pageFromNull(page)
	return &d, nil
}

// ChunksMissingEmbeddings lists chunks without a stored vector, oldest first.
func (s *SQLiteIndex) ChunksMissingEmbeddings(ctx context.Context, limit int) ([]ChunkDetail, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.reader.QueryContext(ctx, `
		SELECT c.id, c.item_id, c.chunk_index, c.page_number, c.text_content, c.word_count
		FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.chunk_id IS NULL
		ORDER BY c.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, stageError(StageExec, "list chunks without embeddings", err)
	}
	defer rows.Close()

	var out []ChunkDetail
	for rows.Next() {
		var d ChunkDetail
		var page sql.NullInt64
		if err := rows.Scan(&d.ChunkID, &d.ItemID, &d.ChunkIndex, &page, &d.Text, &d.WordCount); err != nil {
			return nil, stageError(StageExec, "scan chunk", err)
		}
		d.PageNumber = pageFromNull(page)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, stageError(StageExec, "list chunks without embeddings", err)
	}
	return out, nil
}

// ItemIDs returns the distinct indexed items, sorted.
func (s *SQLiteIndex) ItemIDs(ctx context.Context) ([]string, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	rows, err := s.reader.QueryContext(ctx, `SELECT DISTINCT item_id FROM chunks ORDER BY item_id`)
	if err != nil {
		return nil, stageError(StageExec, "list items", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, stageError(StageExec, "scan item id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, stageError(StageExec, "list items", err)
	}
	return ids, nil
}

// Stats returns row counts.
func (s *SQLiteIndex) Stats(ctx context.Context) (*Stats, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	var st Stats
	err := s.reader.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT item_id) FROM chunks),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM embeddings)`).
		Scan(&st.Items, &st.Chunks, &st.Embeddings)
	if err != nil {
		return nil, stageError(StageExec, "read stats", err)
	}
	return &st, nil
}

// Path returns the database path, "" for in-memory stores.
func (s *SQLiteIndex) Path() string {
	return s.path
}

// Close checkpoints the WAL and releases the database and lock. Idempotent.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.path != "" && s.writer != nil {
		_, _ = s.writer.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.closeHandles()
}

func (s *SQLiteIndex) closeHandles() error {
	var errs []error
	if s.reader != nil && s.reader != s.writer {
		errs = append(errs, s.reader.Close())
	}
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
	}
	return errors.Join(errs...)
}

func pageFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	p := int(n.Int64)
	return &p
}
