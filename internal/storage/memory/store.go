// Package memory provides an in-process CorpusStore used by tests and by
// deployments that load their corpus from seed files at startup.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

type entry struct {
	rec        types.MemoryRecord
	searchText string
}

// Store is a mutex-guarded map of records.
type Store struct {
	mu      sync.RWMutex
	records map[string]*entry
	now     func() time.Time
}

// Compile-time interface check.
var _ storage.CorpusStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FetchCandidates implements storage.CorpusStore.
func (s *Store) FetchCandidates(ctx context.Context, opts storage.FetchOptions) ([]*types.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	type hit struct {
		e    *entry
		hits int
	}

	s.mu.RLock()
	pool := make([]hit, 0, len(s.records))
	for _, e := range s.records {
		if e.rec.Kind != opts.Kind || !storage.InScope(e.rec.Scope, opts.Scope) {
			continue
		}
		pool = append(pool, hit{e: e, hits: storage.TermHits(e.searchText, opts.Terms)})
	}

	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		if a.e.rec.Importance != b.e.rec.Importance {
			return a.e.rec.Importance > b.e.rec.Importance
		}
		if !a.e.rec.CreatedAt.Equal(b.e.rec.CreatedAt) {
			return a.e.rec.CreatedAt.After(b.e.rec.CreatedAt)
		}
		return a.e.rec.ID < b.e.rec.ID
	})

	if len(pool) > opts.Limit {
		pool = pool[:opts.Limit]
	}

	out := make([]*types.MemoryRecord, 0, len(pool))
	for _, h := range pool {
		rec := h.e.rec
		out = append(out, &rec)
	}
	s.mu.RUnlock()

	return out, nil
}

// WriteRecord implements storage.CorpusStore. Writing an existing ID
// replaces its content and importance but keeps its counters and CreatedAt.
func (s *Store) WriteRecord(ctx context.Context, in storage.NewRecord) (*types.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := in.Build(s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[rec.ID]; ok {
		if prev.rec.Kind != rec.Kind {
			return nil, fmt.Errorf("%w: record %s already exists as %s", storage.ErrInvalidInput, rec.ID, prev.rec.Kind)
		}
		rec.CreatedAt = prev.rec.CreatedAt
		rec.AccessCount = prev.rec.AccessCount
		rec.LastAccessedAt = prev.rec.LastAccessedAt
	}

	s.records[rec.ID] = &entry{rec: *rec, searchText: types.SearchText(rec.Kind, rec.Content)}

	out := *rec
	return &out, nil
}

// Touch implements storage.CorpusStore.
func (s *Store) Touch(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		e, ok := s.records[id]
		if !ok {
			continue
		}
		e.rec.AccessCount++
		t := now
		e.rec.LastAccessedAt = &t
	}
	return nil
}

// Get implements storage.CorpusStore.
func (s *Store) Get(ctx context.Context, id string) (*types.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	rec := e.rec
	return &rec, nil
}

// Count implements storage.CorpusStore.
func (s *Store) Count(ctx context.Context, kind types.RecordKind) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if kind == "" {
		return len(s.records), nil
	}
	n := 0
	for _, e := range s.records {
		if e.rec.Kind == kind {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
