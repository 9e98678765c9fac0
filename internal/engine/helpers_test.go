package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/livedata"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/internal/storage/memory"
	"github.com/scrypster/keystone/pkg/types"
)

var errStoreDown = errors.New("connection refused")

// stubStore serves fixed candidate lists and records what the engine does
// with them. Setting err makes every call fail.
type stubStore struct {
	mu         sync.Mutex
	qa         []*types.MemoryRecord
	variations []*types.MemoryRecord
	err        error
	writes     []storage.NewRecord
	touched    []string
}

func (s *stubStore) FetchCandidates(ctx context.Context, opts storage.FetchOptions) ([]*types.MemoryRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	switch opts.Kind {
	case types.KindQA:
		return s.qa, nil
	case types.KindVariation:
		return s.variations, nil
	}
	return nil, nil
}

func (s *stubStore) WriteRecord(ctx context.Context, rec storage.NewRecord) (*types.MemoryRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, rec)
	return &types.MemoryRecord{ID: rec.ID, Kind: rec.Kind, Content: rec.Content}, nil
}

func (s *stubStore) Touch(ctx context.Context, ids []string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, ids...)
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (*types.MemoryRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, rec := range s.qa {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) Count(ctx context.Context, kind types.RecordKind) (int, error) {
	return 0, s.err
}

func (s *stubStore) Close() error { return nil }

// providerFunc adapts a function to livedata.Provider.
type providerFunc func(ctx context.Context, req livedata.Request) (livedata.Facts, error)

func (f providerFunc) Fetch(ctx context.Context, req livedata.Request) (livedata.Facts, error) {
	return f(ctx, req)
}

func staticFacts(facts livedata.Facts) livedata.Provider {
	return providerFunc(func(context.Context, livedata.Request) (livedata.Facts, error) {
		return facts, nil
	})
}

const (
	houstonQuestion = "What are the current Houston real estate market trends?"
	houstonAnswer   = "Houston recorded 6,500 total sales. Homes sold for $350,000 on average. Would you like a breakdown by neighborhood?"
)

func houstonQA() storage.NewRecord {
	return storage.NewRecord{
		ID:   "qa-houston-trends",
		Kind: types.KindQA,
		Content: &types.QAContent{
			Question:   houstonQuestion,
			Answer:     houstonAnswer,
			Keywords:   []string{"houston", "market", "trends"},
			Concepts:   []string{"market_analysis"},
			Category:   "market_trends",
			DataSource: "HAR MLS",
		},
		Importance: 0.9,
	}
}

func newMemoryStore(t *testing.T, recs ...storage.NewRecord) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	for _, rec := range recs {
		_, err := store.WriteRecord(context.Background(), rec)
		require.NoError(t, err)
	}
	return store
}

func count(t *testing.T, store storage.CorpusStore, kind types.RecordKind) int {
	t.Helper()
	n, err := store.Count(context.Background(), kind)
	require.NoError(t, err)
	return n
}
