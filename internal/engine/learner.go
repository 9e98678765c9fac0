package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/internal/similarity"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

var (
	learnedNamespace    = uuid.NewSHA1(uuid.NameSpaceOID, []byte("keystone/learned"))
	preferenceNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("keystone/preference"))
)

// LearnedID is the deterministic ID of the qa record learned from query.
// Case and surrounding whitespace are ignored.
func LearnedID(query string) string {
	return uuid.NewSHA1(learnedNamespace, []byte(normalizeQuery(query))).String()
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Learner writes exchanges back into the corpus.
type Learner struct {
	store  storage.CorpusStore
	cfg    Config
	logger zerolog.Logger
}

// NewLearner creates a Learner writing to store.
func NewLearner(store storage.CorpusStore, cfg Config, logger zerolog.Logger) *Learner {
	return &Learner{store: store, cfg: cfg, logger: logger}
}

// RecordInteraction writes one interaction record for a matched answer whose
// confidence exceeds the learn threshold. It reports whether a record was
// written.
func (l *Learner) RecordInteraction(ctx context.Context, query string, resp *types.Response, match types.MatchResult, scope types.Scope) (bool, error) {
	if !match.Matched() || resp == nil || resp.Confidence <= l.cfg.LearnThreshold {
		return false, nil
	}

	content := &types.InteractionContent{
		Query:      query,
		Response:   resp.Text,
		Confidence: resp.Confidence,
		MatchType:  resp.MatchType,
		MatchedID:  match.Candidate.ID,
		Sources:    resp.Sources,
	}
	if qa := match.Candidate.QA(); qa != nil {
		content.MatchedQuestion = qa.Question
	}

	_, err := l.store.WriteRecord(ctx, storage.NewRecord{
		Kind:       types.KindInteraction,
		Content:    content,
		Importance: resp.Confidence,
		Scope:      scope,
	})
	if err != nil {
		return false, fmt.Errorf("record interaction: %w", err)
	}
	return true, nil
}

// RecordNewLearning writes a generated answer back as a global qa record so
// a later query with the same wording matches it. The write is skipped when
// a pool question already fuzzy-matches query and dedupe is enabled.
func (l *Learner) RecordNewLearning(ctx context.Context, query string, resp *types.Response, intel types.QueryIntelligence, pool []*types.MemoryRecord) (bool, error) {
	if resp == nil || strings.TrimSpace(query) == "" || strings.TrimSpace(resp.Text) == "" {
		return false, nil
	}

	if l.cfg.DedupeLearned {
		for _, rec := range pool {
			qa := rec.QA()
			if qa == nil || rec.ID == LearnedID(query) {
				continue
			}
			if similarity.FuzzyMatch(query, qa.Question) {
				l.logger.Debug().Str("existing_id", rec.ID).Msg("skipping learned write, similar question exists")
				return false, nil
			}
		}
	}

	_, err := l.store.WriteRecord(ctx, storage.NewRecord{
		ID:   LearnedID(query),
		Kind: types.KindQA,
		Content: &types.QAContent{
			Question:   strings.TrimSpace(query),
			Answer:     resp.Text,
			Keywords:   intel.Keywords,
			Concepts:   intel.Concepts,
			Category:   analyzer.Categorize(intel),
			DataSource: SourceGenerated,
			Learned:    true,
		},
		Importance: l.cfg.LearnedImportance,
	})
	if err != nil {
		return false, fmt.Errorf("record new learning: %w", err)
	}
	return true, nil
}

// RecordPreferences stores budget, location and property-type preferences
// mentioned in the query. Records are scoped to the user (or session) and
// keyed by type and value, so repeats do not duplicate.
func (l *Learner) RecordPreferences(ctx context.Context, intel types.QueryIntelligence, scope types.Scope) (int, error) {
	if scope.IsGlobal() {
		return 0, nil
	}

	prefs := []struct{ typ, entity string }{
		{types.PreferenceBudget, types.EntityPrice},
		{types.PreferenceLocation, types.EntityNeighborhood},
		{types.PreferencePropertyType, types.EntityPropertyType},
	}

	owner := scope.UserID
	if owner == "" {
		owner = "session:" + scope.SessionID
	}

	written := 0
	for _, p := range prefs {
		value := intel.Entities[p.entity]
		if value == "" {
			continue
		}
		id := uuid.NewSHA1(preferenceNamespace, []byte(owner+"|"+p.typ+"|"+strings.ToLower(value))).String()
		_, err := l.store.WriteRecord(ctx, storage.NewRecord{
			ID:         id,
			Kind:       types.KindPreference,
			Content:    &types.PreferenceContent{Type: p.typ, Value: value},
			Importance: 0.5,
			Scope:      scope,
		})
		if err != nil {
			return written, fmt.Errorf("record preference %s: %w", p.typ, err)
		}
		written++
	}
	return written, nil
}
