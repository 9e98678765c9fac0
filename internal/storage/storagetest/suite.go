// Package storagetest holds behaviour tests shared by every CorpusStore
// backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.CorpusStore

// Run exercises the CorpusStore contract against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("WriteAndGet", func(t *testing.T) { testWriteAndGet(t, newStore) })
	t.Run("GeneratesID", func(t *testing.T) { testGeneratesID(t, newStore) })
	t.Run("RejectsInvalid", func(t *testing.T) { testRejectsInvalid(t, newStore) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore) })
	t.Run("FetchOrdering", func(t *testing.T) { testFetchOrdering(t, newStore) })
	t.Run("FetchTermHints", func(t *testing.T) { testFetchTermHints(t, newStore) })
	t.Run("FetchScope", func(t *testing.T) { testFetchScope(t, newStore) })
	t.Run("Touch", func(t *testing.T) { testTouch(t, newStore) })
	t.Run("UpsertKeepsCounters", func(t *testing.T) { testUpsertKeepsCounters(t, newStore) })
	t.Run("Count", func(t *testing.T) { testCount(t, newStore) })
}

func open(t *testing.T, newStore Factory) storage.CorpusStore {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// QA builds a qa NewRecord with a deterministic ID derived from question.
func QA(question, answer string, importance float64, keywords ...string) storage.NewRecord {
	return storage.NewRecord{
		ID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(question)).String(),
		Kind: types.KindQA,
		Content: &types.QAContent{
			Question: question,
			Answer:   answer,
			Keywords: keywords,
		},
		Importance: importance,
	}
}

func mustWrite(t *testing.T, s storage.CorpusStore, in storage.NewRecord) *types.MemoryRecord {
	t.Helper()
	rec, err := s.WriteRecord(context.Background(), in)
	require.NoError(t, err)
	return rec
}

func ids(recs []*types.MemoryRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func testWriteAndGet(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	in := storage.NewRecord{
		ID:   "qa-houston-market",
		Kind: types.KindQA,
		Content: &types.QAContent{
			Question:   "What are the current Houston real estate market trends?",
			Answer:     "Houston recorded 7,500 total sales at an average price of $350,000.",
			Keywords:   []string{"houston", "market", "trends"},
			Concepts:   []string{"market_analysis"},
			Variations: []string{"How's the Houston market?"},
			Category:   "market_trends",
			DataSource: "HAR MLS",
		},
		Importance: 1.7,
		Scope:      types.Scope{UserID: "u1", SessionID: "s1"},
	}

	written := mustWrite(t, s, in)
	assert.Equal(t, "qa-houston-market", written.ID)
	assert.Equal(t, 1.0, written.Importance, "importance is clamped")

	got, err := s.Get(ctx, "qa-houston-market")
	require.NoError(t, err)
	assert.Equal(t, types.KindQA, got.Kind)
	assert.Equal(t, 1.0, got.Importance)
	assert.Equal(t, types.Scope{UserID: "u1", SessionID: "s1"}, got.Scope)
	assert.Equal(t, 0, got.AccessCount)
	assert.Nil(t, got.LastAccessedAt)
	assert.False(t, got.CreatedAt.IsZero())

	qa := got.QA()
	require.NotNil(t, qa)
	assert.Equal(t, in.Content, qa)
}

func testGeneratesID(t *testing.T, newStore Factory) {
	s := open(t, newStore)

	rec := mustWrite(t, s, storage.NewRecord{
		Kind:    types.KindInteraction,
		Content: &types.InteractionContent{Query: "q", Response: "r", Confidence: 0.8, MatchType: types.MatchExact},
	})
	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
}

func testRejectsInvalid(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	cases := map[string]storage.NewRecord{
		"no answer":     {Kind: types.KindQA, Content: &types.QAContent{Question: "q"}},
		"nil content":   {Kind: types.KindQA},
		"kind mismatch": {Kind: types.KindVariation, Content: &types.QAContent{Question: "q", Answer: "a"}},
		"unknown kind":  {Kind: "note", Content: &types.QAContent{Question: "q", Answer: "a"}},
		"orphan":        {Kind: types.KindVariation, Content: &types.VariationContent{Text: "q"}},
	}
	for name, in := range cases {
		_, err := s.WriteRecord(ctx, in)
		assert.True(t, errors.Is(err, storage.ErrInvalidInput), "%s: %v", name, err)
	}

	n, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.FetchCandidates(ctx, storage.FetchOptions{Kind: "bogus"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func testGetMissing(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testFetchOrdering(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	low := mustWrite(t, s, QA("Low question", "a", 0.2))
	high := mustWrite(t, s, QA("High question", "a", 0.9))
	older := mustWrite(t, s, QA("Older mid question", "a", 0.5))
	time.Sleep(5 * time.Millisecond)
	newer := mustWrite(t, s, QA("Newer mid question", "a", 0.5))
	mustWrite(t, s, storage.NewRecord{
		Kind:       types.KindVariation,
		Content:    &types.VariationContent{Text: "v", ParentID: high.ID},
		Importance: 1,
	})

	got, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID, newer.ID, older.ID, low.ID}, ids(got))

	got, err = s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID, newer.ID}, ids(got))

	again, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, ids(got), ids(again), "ordering is deterministic")

	vars, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindVariation})
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, high.ID, vars[0].Variation().ParentID)
}

func testFetchTermHints(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	popular := mustWrite(t, s, QA("What permits do I need?", "a", 0.9, "permits"))
	houston := mustWrite(t, s, QA("How is the Houston market?", "a", 0.3, "houston", "market"))
	partial := mustWrite(t, s, QA("Houston permit costs", "a", 0.5, "houston", "permit", "costs"))

	got, err := s.FetchCandidates(ctx, storage.FetchOptions{
		Kind:  types.KindQA,
		Terms: []string{"Houston", "market", "houston"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{houston.ID, partial.ID, popular.ID}, ids(got),
		"term hits rank first, records without hits are still returned")
}

func testFetchScope(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	global := mustWrite(t, s, QA("Global question", "a", 0.9))
	mineIn := QA("Mine", "a", 0.8)
	mineIn.Scope = types.Scope{UserID: "alice"}
	mine := mustWrite(t, s, mineIn)
	theirsIn := QA("Theirs", "a", 0.7)
	theirsIn.Scope = types.Scope{UserID: "bob"}
	theirs := mustWrite(t, s, theirsIn)
	otherSessionIn := QA("Other session", "a", 0.6)
	otherSessionIn.Scope = types.Scope{UserID: "alice", SessionID: "s2"}
	mustWrite(t, s, otherSessionIn)

	got, err := s.FetchCandidates(ctx, storage.FetchOptions{
		Kind:  types.KindQA,
		Scope: &types.Scope{UserID: "alice", SessionID: "s1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{global.ID, mine.ID}, ids(got))

	all, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Contains(t, ids(all), theirs.ID)
}

func testTouch(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	a := mustWrite(t, s, QA("First question", "a", 0.4))
	b := mustWrite(t, s, QA("Second question", "a", 0.6))

	before, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA})
	require.NoError(t, err)

	require.NoError(t, s.Touch(ctx, []string{a.ID, "missing"}))
	require.NoError(t, s.Touch(ctx, []string{a.ID}))
	require.NoError(t, s.Touch(ctx, nil))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)

	untouched, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, untouched.AccessCount)

	after, err := s.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindQA})
	require.NoError(t, err)
	assert.Equal(t, ids(before), ids(after), "touch does not change ordering")
}

func testUpsertKeepsCounters(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	first := mustWrite(t, s, QA("Same question", "old answer", 0.5))
	require.NoError(t, s.Touch(ctx, []string{first.ID}))

	mustWrite(t, s, QA("Same question", "new answer", 0.8))

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "new answer", got.QA().Answer)
	assert.Equal(t, 0.8, got.Importance)
	assert.Equal(t, 1, got.AccessCount)

	n, err := s.Count(ctx, types.KindQA)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testCount(t *testing.T, newStore Factory) {
	s := open(t, newStore)
	ctx := context.Background()

	parent := mustWrite(t, s, QA("Parent", "a", 0.5))
	mustWrite(t, s, storage.NewRecord{Kind: types.KindVariation, Content: &types.VariationContent{Text: "p1", ParentID: parent.ID}})
	mustWrite(t, s, storage.NewRecord{Kind: types.KindVariation, Content: &types.VariationContent{Text: "p2", ParentID: parent.ID}})
	mustWrite(t, s, storage.NewRecord{Kind: types.KindPreference, Content: &types.PreferenceContent{Type: types.PreferenceBudget, Value: "450000"}})

	for kind, want := range map[types.RecordKind]int{
		types.KindQA:          1,
		types.KindVariation:   2,
		types.KindPreference:  1,
		types.KindInteraction: 0,
		"":                    4,
	} {
		n, err := s.Count(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, want, n, "kind %q", kind)
	}
}
