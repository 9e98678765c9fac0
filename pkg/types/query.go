package types

import "time"

// Intent is the single best-guess purpose of a query.
type Intent string

const (
	IntentMarketInquiry       Intent = "market_inquiry"
	IntentCostInquiry         Intent = "cost_inquiry"
	IntentNeighborhoodInquiry Intent = "neighborhood_inquiry"
	IntentBuyingGuidance      Intent = "buying_guidance"
	IntentSellingGuidance     Intent = "selling_guidance"
	IntentInvestmentAnalysis  Intent = "investment_analysis"
	IntentAdviceSeeking       Intent = "advice_seeking"
	IntentGreeting            Intent = "greeting"
	IntentGeneralInquiry      Intent = "general_inquiry"
)

// Entity slot names produced by the analyzer.
const (
	EntityNeighborhood = "neighborhood"
	EntityPropertyType = "property_type"
	EntityPrice        = "price"
)

// QueryIntelligence is derived from a query and never persisted.
type QueryIntelligence struct {
	// Keywords is ordered by first appearance and deduplicated.
	Keywords []string `json:"keywords"`

	// Concepts are coarse topical tags, deduplicated.
	Concepts []string `json:"concepts"`

	Intent   Intent            `json:"intent"`
	Entities map[string]string `json:"entities"`
}

// HasSignal reports whether anything usable was extracted.
func (q QueryIntelligence) HasSignal() bool {
	return len(q.Keywords) > 0 || len(q.Concepts) > 0
}

// HasConcept reports whether concept c was tagged.
func (q QueryIntelligence) HasConcept(c string) bool {
	for _, have := range q.Concepts {
		if have == c {
			return true
		}
	}
	return false
}

// MatchType is the confidence band assigned to a retrieval result.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchSimilar   MatchType = "similar"
	MatchConcept   MatchType = "concept"
	MatchLearned   MatchType = "learned"
	MatchGenerated MatchType = "generated"
	MatchNone      MatchType = "none"
)

// Rank orders match types from weakest (0) to strongest.
func (m MatchType) Rank() int {
	switch m {
	case MatchExact:
		return 5
	case MatchSimilar:
		return 4
	case MatchConcept:
		return 3
	case MatchLearned:
		return 2
	case MatchGenerated:
		return 1
	default:
		return 0
	}
}

// MatchResult is the outcome of ranking the corpus against a query.
type MatchResult struct {
	// Candidate is the qa record whose answer is used. Nil when MatchType is none.
	Candidate *MemoryRecord `json:"candidate,omitempty"`
	Score     float64       `json:"score"`
	MatchType MatchType     `json:"match_type"`

	// ViaVariation is set when a paraphrase hit selected Candidate.
	ViaVariation *MemoryRecord `json:"via_variation,omitempty"`

	// Fallback is the best qa candidate that scored below the match
	// threshold but above the fallback floor. Only set when MatchType is none.
	Fallback *ScoredRecord `json:"fallback,omitempty"`

	// Pool holds the qa candidates that were scored, in fetch order.
	Pool []*MemoryRecord `json:"-"`
}

// Matched reports whether a usable candidate was found.
func (m MatchResult) Matched() bool {
	return m.MatchType != MatchNone && m.Candidate != nil
}

// ScoredRecord pairs a record with its composite score.
type ScoredRecord struct {
	Record *MemoryRecord `json:"record"`
	Score  float64       `json:"score"`
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LearningSummary reports what the engine understood and stored.
type LearningSummary struct {
	Understood bool     `json:"understood"`
	Keywords   []string `json:"keywords"`
	Concepts   []string `json:"concepts"`
	Improved   bool     `json:"improved"`
}

// Response is what the assistant returns for a query.
type Response struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Sources    []string        `json:"sources"`
	MatchType  MatchType       `json:"match_type"`
	FollowUps  []string        `json:"follow_ups"`
	Learning   LearningSummary `json:"learning"`
}
