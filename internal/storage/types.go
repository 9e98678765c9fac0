package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/keystone/pkg/types"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	// DefaultFetchLimit applies when FetchOptions.Limit is not positive.
	DefaultFetchLimit = 10

	// MaxFetchLimit caps a single candidate fetch.
	MaxFetchLimit = 200

	// MaxTerms caps the term hints considered per fetch.
	MaxTerms = 16
)

// FetchOptions selects a candidate pool.
type FetchOptions struct {
	// Kind is required.
	Kind types.RecordKind

	// Limit is the maximum number of records (default: 10, max: 200).
	Limit int

	// Scope restricts results to unscoped records plus records owned by
	// Scope.UserID (and Scope.SessionID when set). Nil means no filter.
	Scope *types.Scope

	// Terms are lowercase ranking hints. Records whose search text contains
	// more of them sort first. They never filter records out.
	Terms []string
}

// Normalize applies defaults and validates the FetchOptions.
func (o *FetchOptions) Normalize() error {
	if !o.Kind.IsValid() {
		return fmt.Errorf("%w: unknown record kind %q", ErrInvalidInput, o.Kind)
	}

	if o.Limit < 1 {
		o.Limit = DefaultFetchLimit
	}

	if o.Limit > MaxFetchLimit {
		o.Limit = MaxFetchLimit
	}

	terms := make([]string, 0, len(o.Terms))
	seen := make(map[string]struct{}, len(o.Terms))
	for _, t := range o.Terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
		if len(terms) == MaxTerms {
			break
		}
	}
	o.Terms = terms

	return nil
}

// NewRecord is the input to CorpusStore.WriteRecord.
type NewRecord struct {
	// ID is optional; deterministic IDs make writes idempotent.
	ID         string
	Kind       types.RecordKind
	Content    types.Content
	Importance float64
	Scope      types.Scope
}

// Build validates the input and produces the record to persist.
func (n NewRecord) Build(now time.Time) (*types.MemoryRecord, error) {
	rec := &types.MemoryRecord{
		ID:         n.ID,
		Kind:       n.Kind,
		Content:    n.Content,
		Importance: types.ClampUnit(n.Importance),
		CreatedAt:  now,
		UpdatedAt:  now,
		Scope:      n.Scope,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rec, nil
}

// TermHits counts how many terms occur in searchText.
func TermHits(searchText string, terms []string) int {
	hits := 0
	for _, t := range terms {
		if strings.Contains(searchText, t) {
			hits++
		}
	}
	return hits
}

// InScope reports whether a record with scope s is visible under filter.
func InScope(s types.Scope, filter *types.Scope) bool {
	if filter == nil || s.IsGlobal() {
		return true
	}
	if s.UserID != "" && s.UserID != filter.UserID {
		return false
	}
	if filter.SessionID != "" && s.SessionID != "" && s.SessionID != filter.SessionID {
		return false
	}
	return true
}
