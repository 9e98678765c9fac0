package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/internal/similarity"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

// ScoreComponents breaks a composite score down into its weighted parts.
type ScoreComponents struct {
	Question  float64 `json:"question"`
	Keywords  float64 `json:"keywords"`
	Concepts  float64 `json:"concepts"`
	Variation float64 `json:"variation"`
	Total     float64 `json:"total"`
}

// Matcher ranks corpus records against a query.
type Matcher struct {
	store  storage.CorpusStore
	cfg    Config
	logger zerolog.Logger
}

// NewMatcher creates a matcher reading candidates from store.
func NewMatcher(store storage.CorpusStore, cfg Config, logger zerolog.Logger) *Matcher {
	return &Matcher{store: store, cfg: cfg, logger: logger}
}

// FindBestMatch analyzes query and returns its best match over the whole
// corpus. It never fails: store errors degrade to MatchNone.
func (m *Matcher) FindBestMatch(ctx context.Context, query string) types.MatchResult {
	return m.Match(ctx, query, analyzer.Analyze(query), nil)
}

// Match ranks candidates visible under scope (nil for all) against an
// already analyzed query. Every fetched candidate has its access counters
// bumped once, whether or not it wins.
func (m *Matcher) Match(ctx context.Context, query string, intel types.QueryIntelligence, scope *types.Scope) types.MatchResult {
	var terms []string
	if m.cfg.TermHints {
		terms = intel.Keywords
	}

	pool := m.fetch(ctx, storage.FetchOptions{Kind: types.KindQA, Limit: m.cfg.QALimit, Scope: scope, Terms: terms})
	var variations []*types.MemoryRecord
	if m.cfg.VariationLimit > 0 {
		variations = m.fetch(ctx, storage.FetchOptions{Kind: types.KindVariation, Limit: m.cfg.VariationLimit, Scope: scope, Terms: terms})
	}

	var best *types.ScoredRecord
	for _, rec := range pool {
		qa := rec.QA()
		if qa == nil || qa.Validate() != nil {
			m.logger.Debug().Str("record_id", rec.ID).Msg("skipping malformed qa candidate")
			continue
		}
		score := ScoreCandidate(query, intel, qa).Total
		// Ties go to the more important record, then to fetch order.
		if best == nil || score > best.Score || (score == best.Score && rec.Importance > best.Record.Importance) {
			best = &types.ScoredRecord{Record: rec, Score: score}
		}
	}

	result := types.MatchResult{MatchType: types.MatchNone, Pool: pool}
	hit, parent := m.variationHit(ctx, query, variations, pool)
	m.touch(ctx, pool, variations, parent)

	if parent != nil && (best == nil || best.Score <= VariationScore) {
		result.Candidate = parent
		result.Score = VariationScore
		result.MatchType = Classify(VariationScore)
		result.ViaVariation = hit
		return result
	}

	if best == nil {
		return result
	}

	result.Score = best.Score
	result.MatchType = Classify(best.Score)
	if result.MatchType == types.MatchNone {
		if best.Score >= m.cfg.FallbackFloor && best.Score > 0 {
			result.Fallback = best
		}
		return result
	}

	result.Candidate = best.Record
	return result
}

// variationHit returns the first variation, in fetch order, whose text
// fuzzy-matches query and whose parent qa record can be resolved.
func (m *Matcher) variationHit(ctx context.Context, query string, variations, pool []*types.MemoryRecord) (*types.MemoryRecord, *types.MemoryRecord) {
	for _, rec := range variations {
		v := rec.Variation()
		if v == nil || v.Validate() != nil {
			continue
		}
		if !similarity.FuzzyMatch(query, v.Text) {
			continue
		}
		if parent := m.resolveParent(ctx, v, pool); parent != nil {
			return rec, parent
		}
		m.logger.Warn().Str("variation_id", rec.ID).Str("parent_id", v.ParentID).Msg("variation parent not found")
	}
	return nil, nil
}

// touch records one access for every fetched record plus a variation parent
// that was resolved outside the qa pool.
func (m *Matcher) touch(ctx context.Context, pool, variations []*types.MemoryRecord, parent *types.MemoryRecord) {
	seen := make(map[string]struct{}, len(pool)+len(variations)+1)
	ids := make([]string, 0, len(pool)+len(variations)+1)
	add := func(rec *types.MemoryRecord) {
		if rec == nil || rec.ID == "" {
			return
		}
		if _, dup := seen[rec.ID]; dup {
			return
		}
		seen[rec.ID] = struct{}{}
		ids = append(ids, rec.ID)
	}
	for _, rec := range pool {
		add(rec)
	}
	for _, rec := range variations {
		add(rec)
	}
	add(parent)

	if len(ids) == 0 {
		return
	}
	if err := m.store.Touch(ctx, ids); err != nil {
		m.logger.Warn().Err(err).Strs("ids", ids).Msg("failed to update access counters")
	}
}

func (m *Matcher) resolveParent(ctx context.Context, v *types.VariationContent, pool []*types.MemoryRecord) *types.MemoryRecord {
	if v.ParentID != "" {
		for _, rec := range pool {
			if rec.ID == v.ParentID {
				return validQA(rec)
			}
		}
		rec, err := m.store.Get(ctx, v.ParentID)
		switch {
		case err == nil:
			return validQA(rec)
		case !errors.Is(err, storage.ErrNotFound):
			m.logger.Warn().Err(err).Str("parent_id", v.ParentID).Msg("corpus unavailable while resolving variation parent")
		}
	}

	if q := strings.TrimSpace(v.ParentQuestion); q != "" {
		for _, rec := range pool {
			if qa := rec.QA(); qa != nil && strings.EqualFold(strings.TrimSpace(qa.Question), q) {
				return validQA(rec)
			}
		}
	}
	return nil
}

func validQA(rec *types.MemoryRecord) *types.MemoryRecord {
	if qa := rec.QA(); qa == nil || qa.Validate() != nil {
		return nil
	}
	return rec
}

func (m *Matcher) fetch(ctx context.Context, opts storage.FetchOptions) []*types.MemoryRecord {
	recs, err := m.store.FetchCandidates(ctx, opts)
	if err != nil {
		m.logger.Warn().Err(err).Str("kind", string(opts.Kind)).Msg("corpus unavailable, continuing without candidates")
		return nil
	}
	return recs
}

// ScoreCandidate computes the weighted composite score of qa against query.
func ScoreCandidate(query string, intel types.QueryIntelligence, qa *types.QAContent) ScoreComponents {
	var c ScoreComponents

	c.Question = similarity.JaccardWithOrderBonus(query, qa.Question) * QuestionWeight
	c.Keywords = similarity.OverlapRatio(intel.Keywords, qa.Keywords) * KeywordWeight
	c.Concepts = similarity.OverlapRatio(intel.Concepts, qa.Concepts) * ConceptWeight

	for _, v := range qa.Variations {
		if similarity.FuzzyMatch(query, v) {
			c.Variation = VariationWeight
			break
		}
	}

	c.Total = types.ClampUnit(c.Question + c.Keywords + c.Concepts + c.Variation)
	return c
}

// Classify maps a score onto its match band.
func Classify(score float64) types.MatchType {
	switch {
	case score > ExactThreshold:
		return types.MatchExact
	case score > SimilarThreshold:
		return types.MatchSimilar
	case score > ConceptThreshold:
		return types.MatchConcept
	case score > LearnedThreshold:
		return types.MatchLearned
	default:
		return types.MatchNone
	}
}
