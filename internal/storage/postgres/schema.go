// Package postgres implements storage.CorpusStore on PostgreSQL.
package postgres

// Schema creates the records table. All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
    id               TEXT PRIMARY KEY,
    kind             TEXT NOT NULL,
    content          JSONB NOT NULL,
    search_text      TEXT NOT NULL DEFAULT '',
    importance       DOUBLE PRECISION NOT NULL DEFAULT 0.5
                     CHECK (importance >= 0 AND importance <= 1),
    access_count     INTEGER NOT NULL DEFAULT 0,
    last_accessed_at TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    user_id          TEXT NOT NULL DEFAULT '',
    session_id       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_kind_rank
    ON records (kind, importance DESC, created_at DESC, id);

CREATE INDEX IF NOT EXISTS idx_records_scope
    ON records (user_id, session_id);
`
