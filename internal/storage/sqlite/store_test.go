package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/internal/storage/storagetest"
	"github.com/scrypster/keystone/pkg/types"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.CorpusStore {
		store, err := NewStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

func TestFetchCandidates_SkipsMalformedRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	good, err := store.WriteRecord(ctx, storagetest.QA("Houston market trends", "Prices are up.", 0.5))
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO records (id, kind, content, search_text, importance, created_at, updated_at)
		VALUES ('broken-json', 'qa', '{not json', '', 0.9, ?, ?),
		       ('no-answer', 'qa', '{"question":"orphan"}', '', 0.8, ?, ?)
	`, formatTime(store.now()), formatTime(store.now()), formatTime(store.now()), formatTime(store.now()))
	require.NoError(t, err)

	got, err := store.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].ID)

	_, err = store.Get(ctx, "broken-json")
	assert.ErrorIs(t, err, types.ErrMalformedRecord)
}

func TestWriteRecord_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	ctx := context.Background()

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	rec, err := store.WriteRecord(ctx, storagetest.QA("Construction costs in Katy", "About $150 per sqft.", 0.6))
	require.NoError(t, err)
	require.NoError(t, store.Touch(ctx, []string{rec.ID}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "About $150 per sqft.", got.QA().Answer)
	assert.Equal(t, 1, got.AccessCount)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	store := newTestStore(t)
	a := store.now()
	b := a.Add(1)
	assert.Less(t, formatTime(a), formatTime(b))

	parsed, err := parseTime(formatTime(b))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(b))
}

func TestDbPathFromDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"in-memory", ":memory:", ""},
		{"empty", "", ""},
		{"bare path", "/tmp/test.db", "/tmp/test.db"},
		{"file URI bare", "file:/tmp/test.db", "/tmp/test.db"},
		{"file URI with params", "file:/tmp/test.db?mode=rwc&_journal=WAL", "/tmp/test.db"},
		{"file URI memory", "file::memory:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dbPathFromDSN(tt.dsn))
		})
	}
}

func TestClose_WALCheckpoint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoint-test.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)

	_, err = store.WriteRecord(context.Background(), storagetest.QA("WAL checkpoint", "data", 0.5))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	if info, err := os.Stat(dbPath + "-wal"); err == nil {
		assert.Zero(t, info.Size(), "WAL should be truncated on close")
	}
}

func TestIsRecoverableWALError(t *testing.T) {
	assert.False(t, isRecoverableWALError(nil))
	assert.False(t, isRecoverableWALError(errors.New("no such table")))
	assert.True(t, isRecoverableWALError(errors.New("disk I/O error (5386)")))
	assert.True(t, isRecoverableWALError(errors.New("database is locked")))
}
