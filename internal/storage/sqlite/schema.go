package sqlite

// Schema creates the records table. Timestamps are fixed-width RFC 3339 UTC
// strings so that lexical order equals chronological order.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	id               TEXT PRIMARY KEY,
	kind             TEXT NOT NULL,
	content          TEXT NOT NULL,
	search_text      TEXT NOT NULL DEFAULT '',
	importance       REAL NOT NULL DEFAULT 0.5 CHECK (importance >= 0 AND importance <= 1),
	access_count     INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	user_id          TEXT NOT NULL DEFAULT '',
	session_id       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_kind_rank
	ON records (kind, importance DESC, created_at DESC, id);

CREATE INDEX IF NOT EXISTS idx_records_scope
	ON records (user_id, session_id);
`
