// Package storage defines the corpus access port used by the retrieval engine.
//
// The engine never talks to a database directly; it reads candidate pools,
// writes new records and bumps access counters through CorpusStore. Backends
// live in the memory, sqlite and postgres subpackages.
package storage

import (
	"context"

	"github.com/scrypster/keystone/pkg/types"
)

// CorpusStore provides read/write access to the record corpus.
type CorpusStore interface {
	// FetchCandidates returns up to opts.Limit records of opts.Kind.
	// Ordering is term-hit count desc (when opts.Terms is set), then
	// importance desc, created_at desc, id asc. Records whose content cannot
	// be decoded are skipped, not returned as errors.
	FetchCandidates(ctx context.Context, opts FetchOptions) ([]*types.MemoryRecord, error)

	// WriteRecord validates and upserts a record. An empty rec.ID gets a
	// fresh UUID. Importance is clamped to [0, 1].
	WriteRecord(ctx context.Context, rec NewRecord) (*types.MemoryRecord, error)

	// Touch increments access_count and sets last_accessed_at for ids.
	// Unknown ids are ignored.
	Touch(ctx context.Context, ids []string) error

	// Get retrieves a record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*types.MemoryRecord, error)

	// Count returns the number of records of kind (all kinds when empty).
	Count(ctx context.Context, kind types.RecordKind) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
