package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/internal/livedata"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

// Request is a single query to the assistant.
type Request struct {
	Query     string       `json:"query"`
	SessionID string       `json:"session_id"`
	UserID    string       `json:"user_id,omitempty"`
	History   []types.Turn `json:"history,omitempty"`
}

// Scope returns the record scope for the request.
func (r Request) Scope() types.Scope {
	return types.Scope{UserID: r.UserID, SessionID: r.SessionID}
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(a *Assistant) { a.cfg = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Assistant) { a.logger = logger }
}

// WithLiveData sets the live data provider used to refresh answers.
func WithLiveData(p livedata.Provider) Option {
	return func(a *Assistant) { a.live = p }
}

// Assistant answers queries from the corpus and learns from each exchange.
// It holds no per-query state and is safe for concurrent use when the store
// and provider are.
type Assistant struct {
	store  storage.CorpusStore
	live   livedata.Provider
	cfg    Config
	logger zerolog.Logger

	matcher     *Matcher
	synthesizer *Synthesizer
	learner     *Learner
}

// New creates an Assistant backed by store.
func New(store storage.CorpusStore, opts ...Option) (*Assistant, error) {
	if store == nil {
		return nil, errors.New("corpus store is required")
	}

	a := &Assistant{
		store:  store,
		live:   livedata.Nop{},
		cfg:    DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.live == nil {
		a.live = livedata.Nop{}
	}

	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	a.matcher = NewMatcher(store, a.cfg, a.logger)
	a.synthesizer = NewSynthesizer()
	a.learner = NewLearner(store, a.cfg, a.logger)
	return a, nil
}

// Matcher exposes the assistant's ranking stage.
func (a *Assistant) Matcher() *Matcher {
	return a.matcher
}

// Answer produces a response for req. Store and live data failures degrade
// the answer instead of failing; an error is returned only when ctx is done
// before work starts.
func (a *Assistant) Answer(ctx context.Context, req Request) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.Query)
	intel := analyzer.Analyze(query)
	scope := req.Scope()

	var filter *types.Scope
	if !scope.IsGlobal() {
		filter = &scope
	}

	log := a.logger.With().Str("session_id", req.SessionID).Logger()

	// Queries without keywords still run: "Who are you?" is all stopwords
	// but can be a stored paraphrase.
	match := a.matcher.Match(ctx, query, intel, filter)

	category := analyzer.Categorize(intel)
	if match.Matched() {
		if c := match.Candidate.QA().Category; c != "" {
			category = c
		}
	}

	facts := a.fetchFacts(ctx, log, intel, category)
	resp := a.synthesizer.Synthesize(match, intel, facts, req.History)

	improved := false
	switch {
	case match.Matched():
		if _, err := a.learner.RecordInteraction(ctx, query, resp, match, scope); err != nil {
			log.Warn().Err(err).Msg("failed to record interaction")
		}
		resp.FollowUps = Suggest(FollowUpCategory(category))

	case resp.MatchType == types.MatchGenerated:
		ok, err := a.learner.RecordNewLearning(ctx, query, resp, intel, match.Pool)
		if err != nil {
			log.Warn().Err(err).Msg("failed to record new learning")
		}
		improved = ok
		resp.FollowUps = contextualFollowUps(intel, category)

	default:
		resp.FollowUps = Suggest(FollowUpGeneral)
	}

	if a.cfg.ExtractPreferences && intel.HasSignal() {
		if _, err := a.learner.RecordPreferences(ctx, intel, scope); err != nil {
			log.Warn().Err(err).Msg("failed to record preferences")
		}
	}

	resp.Learning = types.LearningSummary{
		Understood: intel.HasSignal(),
		Keywords:   nonNil(intel.Keywords),
		Concepts:   nonNil(intel.Concepts),
		Improved:   improved,
	}

	log.Debug().
		Str("match_type", string(resp.MatchType)).
		Float64("confidence", resp.Confidence).
		Bool("improved", improved).
		Msg("answered query")

	return resp, nil
}

func (a *Assistant) fetchFacts(ctx context.Context, log zerolog.Logger, intel types.QueryIntelligence, category string) livedata.Facts {
	if !intel.HasSignal() {
		return nil
	}
	req := livedata.RequestFor(intel, category)
	if req.Empty() {
		return nil
	}
	facts, err := a.live.Fetch(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("live data unavailable, answering without it")
		return nil
	}
	return facts
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
