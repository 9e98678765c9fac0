package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/internal/storage/storagetest"
	"github.com/scrypster/keystone/pkg/types"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.CorpusStore {
		return NewStore()
	})
}

func TestStore_IDBreaksTies(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.WriteRecord(ctx, storage.NewRecord{
			ID:         id,
			Kind:       types.KindQA,
			Content:    &types.QAContent{Question: "q " + id, Answer: "a"},
			Importance: 0.5,
		})
		require.NoError(t, err)
	}

	got, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestStore_KindCannotChange(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.WriteRecord(ctx, storage.NewRecord{ID: "x", Kind: types.KindQA, Content: &types.QAContent{Question: "q", Answer: "a"}})
	require.NoError(t, err)

	_, err = s.WriteRecord(ctx, storage.NewRecord{ID: "x", Kind: types.KindPreference, Content: &types.PreferenceContent{Type: "budget", Value: "1"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStore_CanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA})
	assert.ErrorIs(t, err, context.Canceled)
}
