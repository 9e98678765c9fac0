package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

func newTestLearner(store storage.CorpusStore) *Learner {
	return NewLearner(store, DefaultConfig(), zerolog.Nop())
}

func TestRecordNewLearning_RoundTrip(t *testing.T) {
	tests := []struct {
		query  string
		answer string
	}{
		{"What is the Katy school district like?", "Katy ISD is one of the highest rated districts in the region."},
		{"Are Montrose condo prices rising?", "Montrose condo prices have been flat this year."},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ctx := context.Background()
			store := newMemoryStore(t)

			ok, err := newTestLearner(store).RecordNewLearning(ctx, tt.query, &types.Response{Text: tt.answer}, analyzer.Analyze(tt.query), nil)
			require.NoError(t, err)
			require.True(t, ok)

			result := newTestMatcher(store).FindBestMatch(ctx, tt.query)
			require.True(t, result.Matched())
			assert.GreaterOrEqual(t, result.MatchType.Rank(), types.MatchLearned.Rank())
			assert.Equal(t, tt.answer, result.Candidate.QA().Answer)
			assert.True(t, result.Candidate.QA().Learned)
			assert.Equal(t, SourceGenerated, result.Candidate.QA().DataSource)
		})
	}
}

func TestRecordNewLearning_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	l := newTestLearner(store)
	query := "Are Montrose condo prices rising?"

	for i := 0; i < 3; i++ {
		_, err := l.RecordNewLearning(ctx, query, &types.Response{Text: "Flat this year."}, analyzer.Analyze(query), nil)
		require.NoError(t, err)
	}
	_, err := l.RecordNewLearning(ctx, "  are montrose condo PRICES rising?  ", &types.Response{Text: "Flat this year."}, analyzer.Analyze(query), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, count(t, store, types.KindQA))
	assert.Equal(t, LearnedID(query), LearnedID("ARE  montrose condo prices rising?"))
}

func TestRecordNewLearning_DedupeAgainstPool(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	existing := qaRecord("qa-trends", "What are current Houston market trends?", "Steady.", nil, nil)
	query := "What are the current Houston market trends?"

	ok, err := newTestLearner(store).RecordNewLearning(ctx, query, &types.Response{Text: "Generated."}, analyzer.Analyze(query), []*types.MemoryRecord{existing})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.writes)

	cfg := DefaultConfig()
	cfg.DedupeLearned = false
	ok, err = NewLearner(store, cfg, zerolog.Nop()).RecordNewLearning(ctx, query, &types.Response{Text: "Generated."}, analyzer.Analyze(query), []*types.MemoryRecord{existing})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, store.writes, 1)
}

func TestRecordNewLearning_StoreError(t *testing.T) {
	query := "Are Montrose condo prices rising?"
	ok, err := newTestLearner(&stubStore{err: errStoreDown}).RecordNewLearning(context.Background(), query, &types.Response{Text: "Flat."}, analyzer.Analyze(query), nil)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, ok)
}

func TestRecordInteraction_Threshold(t *testing.T) {
	ctx := context.Background()
	rec := qaRecord("qa-houston-trends", houstonQuestion, houstonAnswer, nil, nil)
	match := types.MatchResult{Candidate: rec, Score: 0.8, MatchType: types.MatchSimilar}
	scope := types.Scope{SessionID: "s1"}

	store := &stubStore{}
	l := newTestLearner(store)

	ok, err := l.RecordInteraction(ctx, "q", &types.Response{Text: "a", Confidence: 0.7}, match, scope)
	require.NoError(t, err)
	assert.False(t, ok, "confidence must exceed the threshold")

	ok, err = l.RecordInteraction(ctx, "q", &types.Response{Text: "a", Confidence: 0.8, MatchType: types.MatchSimilar}, match, scope)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, store.writes, 1)
	w := store.writes[0]
	assert.Equal(t, types.KindInteraction, w.Kind)
	assert.Equal(t, scope, w.Scope)
	content := w.Content.(*types.InteractionContent)
	assert.Equal(t, "qa-houston-trends", content.MatchedID)
	assert.Equal(t, houstonQuestion, content.MatchedQuestion)
	assert.Equal(t, 0.8, content.Confidence)
}

func TestRecordInteraction_RequiresMatch(t *testing.T) {
	store := &stubStore{}
	ok, err := newTestLearner(store).RecordInteraction(context.Background(), "q",
		&types.Response{Text: "a", Confidence: 0.9}, types.MatchResult{MatchType: types.MatchNone}, types.Scope{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.writes)
}

func TestRecordPreferences(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	l := newTestLearner(store)
	intel := analyzer.Analyze("Looking for a condo in River Oaks under $450k")
	scope := types.Scope{UserID: "u1", SessionID: "s1"}

	n, err := l.RecordPreferences(ctx, intel, scope)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = l.RecordPreferences(ctx, intel, scope)
	require.NoError(t, err)
	assert.Equal(t, 3, count(t, store, types.KindPreference))

	prefs, err := store.FetchCandidates(ctx, storage.FetchOptions{Kind: types.KindPreference, Scope: &types.Scope{UserID: "u1"}})
	require.NoError(t, err)
	values := map[string]string{}
	for _, rec := range prefs {
		p := rec.Content.(*types.PreferenceContent)
		values[p.Type] = p.Value
	}
	assert.Equal(t, map[string]string{
		types.PreferenceBudget:       "450000",
		types.PreferenceLocation:     "River Oaks",
		types.PreferencePropertyType: "condo",
	}, values)
}

func TestRecordPreferences_AnonymousSkipped(t *testing.T) {
	store := &stubStore{}
	n, err := newTestLearner(store).RecordPreferences(context.Background(),
		analyzer.Analyze("Looking for a condo in River Oaks under $450k"), types.Scope{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.writes)
}
