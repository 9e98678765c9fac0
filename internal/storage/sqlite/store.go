// Package sqlite implements storage.CorpusStore on SQLite (modernc.org/sqlite,
// no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements storage.CorpusStore using SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Compile-time interface check.
var _ storage.CorpusStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped rows and WAL recovery.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore opens (or creates) the database at dsn. If the open fails because
// of stale WAL files left by a crashed process, and no other process holds
// them, the files are removed and the open is retried once.
func NewStore(dsn string, opts ...Option) (*Store, error) {
	store, err := openStore(dsn, opts)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openStore(dsn, opts)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	store.logger.Warn().Str("path", dbPath).Msg("sqlite: recovered from stale WAL files")
	return store, nil
}

func openStore(dsn string, opts []Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer. One connection serialises writes and
	// avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FetchCandidates implements storage.CorpusStore.
func (s *Store) FetchCandidates(ctx context.Context, opts storage.FetchOptions) ([]*types.MemoryRecord, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	var (
		args  []any
		where = []string{"kind = ?"}
		hits  = "0"
	)

	// Term hints are bound first because they appear first in the SELECT.
	if len(opts.Terms) > 0 {
		parts := make([]string, len(opts.Terms))
		for i, term := range opts.Terms {
			parts[i] = "(instr(search_text, ?) > 0)"
			args = append(args, term)
		}
		hits = strings.Join(parts, " + ")
	}

	args = append(args, string(opts.Kind))

	if opts.Scope != nil {
		where = append(where, "(user_id = '' OR user_id = ?)")
		args = append(args, opts.Scope.UserID)
		if opts.Scope.SessionID != "" {
			where = append(where, "(session_id = '' OR session_id = ?)")
			args = append(args, opts.Scope.SessionID)
		}
	}

	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
		SELECT id, kind, content, importance, access_count, last_accessed_at,
		       created_at, updated_at, user_id, session_id, %s AS hits
		FROM records
		WHERE %s
		ORDER BY hits DESC, importance DESC, created_at DESC, id ASC
		LIMIT ?
	`, hits, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to fetch candidates: %w", err)
	}
	defer rows.Close()

	var out []*types.MemoryRecord
	for rows.Next() {
		var hitCount int
		rec, err := scanRecord(rows, &hitCount)
		if err != nil {
			if errors.Is(err, types.ErrMalformedRecord) {
				s.logger.Warn().Err(err).Msg("sqlite: skipping malformed record")
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate candidates: %w", err)
	}

	return out, nil
}

// WriteRecord implements storage.CorpusStore.
func (s *Store) WriteRecord(ctx context.Context, in storage.NewRecord) (*types.MemoryRecord, error) {
	rec, err := in.Build(s.now())
	if err != nil {
		return nil, err
	}

	content, err := types.MarshalContent(rec.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		prevKind   string
		prevCount  int
		prevAccess sql.NullString
		prevCreate string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT kind, access_count, last_accessed_at, created_at FROM records WHERE id = ?`, rec.ID,
	).Scan(&prevKind, &prevCount, &prevAccess, &prevCreate)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("sqlite: failed to look up record: %w", err)
	case prevKind != string(rec.Kind):
		return nil, fmt.Errorf("%w: record %s already exists as %s", storage.ErrInvalidInput, rec.ID, prevKind)
	default:
		rec.AccessCount = prevCount
		if rec.CreatedAt, err = parseTime(prevCreate); err != nil {
			return nil, err
		}
		if rec.LastAccessedAt, err = parseNullTime(prevAccess); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, kind, content, search_text, importance, access_count,
		                     last_accessed_at, created_at, updated_at, user_id, session_id)
		VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			search_text = excluded.search_text,
			importance = excluded.importance,
			updated_at = excluded.updated_at,
			user_id = excluded.user_id,
			session_id = excluded.session_id
	`,
		rec.ID,
		string(rec.Kind),
		string(content),
		types.SearchText(rec.Kind, rec.Content),
		rec.Importance,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		rec.Scope.UserID,
		rec.Scope.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to write record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to commit record: %w", err)
	}

	return rec, nil
}

// Touch implements storage.CorpusStore.
func (s *Store) Touch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, formatTime(s.now()))
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		UPDATE records
		SET access_count = access_count + 1,
		    last_accessed_at = ?
		WHERE id IN (%s)
	`, placeholders)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: failed to touch records: %w", err)
	}
	return nil
}

// Get implements storage.CorpusStore.
func (s *Store) Get(ctx context.Context, id string) (*types.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, content, importance, access_count, last_accessed_at,
		       created_at, updated_at, user_id, session_id
		FROM records
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row, nil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Count implements storage.CorpusStore.
func (s *Store) Count(ctx context.Context, kind types.RecordKind) (int, error) {
	var (
		n   int
		err error
	)
	if kind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = ?`, string(kind)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to count records: %w", err)
	}
	return n, nil
}

// Close flushes the WAL into the main database file and releases resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn().Err(err).Msg("sqlite: WAL checkpoint on close failed")
	}

	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. When hits is non-nil an extra trailing column is
// scanned into it.
func scanRecord(row scanner, hits *int) (*types.MemoryRecord, error) {
	var (
		rec        types.MemoryRecord
		kind       string
		content    string
		lastAccess sql.NullString
		createdAt  string
		updatedAt  string
	)

	dest := []any{
		&rec.ID, &kind, &content, &rec.Importance, &rec.AccessCount, &lastAccess,
		&createdAt, &updatedAt, &rec.Scope.UserID, &rec.Scope.SessionID,
	}
	if hits != nil {
		dest = append(dest, hits)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: failed to scan record: %w", err)
	}

	rec.Kind = types.RecordKind(kind)

	c, err := types.UnmarshalContent(rec.Kind, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Content = c

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if rec.LastAccessedAt, err = parseNullTime(lastAccess); err != nil {
		return nil, err
	}

	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN.
// Handles bare paths ("/path/to/db.sqlite") and file: URIs ("file:/path/to/db.sqlite?mode=rwc").
// Returns empty string for in-memory databases or unparseable DSNs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError matches errors caused by stale WAL files left behind
// after a crash.
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

// isWALStale reports whether -shm/-wal files exist for dbPath and no other
// process holds them open. Returns false when lsof is unavailable.
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}

	output, err := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath).Output()
	if err != nil {
		// lsof exits 1 when nothing has the files open.
		return true
	}

	return strings.TrimSpace(string(output)) == ""
}

func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		_ = os.Remove(dbPath + suffix)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
