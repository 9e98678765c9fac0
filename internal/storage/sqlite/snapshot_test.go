package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/storage/storagetest"
	"github.com/scrypster/keystone/pkg/types"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec, err := store.WriteRecord(ctx, storagetest.QA("Houston market trends", "Prices are up.", 0.8))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "corpus-snapshot.db")
	require.NoError(t, store.Snapshot(ctx, dest))
	require.NoError(t, VerifySnapshot(ctx, dest))

	copied, err := NewStore(dest)
	require.NoError(t, err)
	defer copied.Close()

	got, err := copied.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prices are up.", got.Content.(*types.QAContent).Answer)
}

func TestSnapshot_RefusesExistingDestination(t *testing.T) {
	store := newTestStore(t)
	dest := filepath.Join(t.TempDir(), "taken.db")
	require.NoError(t, os.WriteFile(dest, []byte("x"), 0o600))

	err := store.Snapshot(context.Background(), dest)
	assert.ErrorIs(t, err, ErrSnapshotExists)
}

func TestVerifySnapshot_Invalid(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, VerifySnapshot(ctx, filepath.Join(t.TempDir(), "missing.db")))

	garbage := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not sqlite, just some bytes padding it out"), 0o600))
	assert.Error(t, VerifySnapshot(ctx, garbage))
}
