package store

// schema creates the chunk table, its FTS5 external-content index and the
// embeddings table. The chunks_ai/ad/au triggers are the only writers of
// chunks_fts.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	page_number INTEGER,
	text_content TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (item_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_item ON chunks(item_id);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	text_content,
	content='chunks',
	content_rowid='id',
	tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts(rowid, text_content) VALUES (new.id, new.text_content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text_content) VALUES ('delete', old.id, old.text_content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text_content) VALUES ('delete', old.id, old.text_content);
	INSERT INTO chunks_fts(rowid, text_content) VALUES (new.id, new.text_content);
END;

CREATE TABLE IF NOT EXISTS embeddings (
	chunk_id INTEGER PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
	vector BLOB NOT NULL
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// requiredTables must exist in a healthy index file.
var requiredTables = []string{"chunks", "chunks_fts", "embeddings"}
