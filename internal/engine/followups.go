package engine

import (
	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/pkg/types"
)

// Follow-up table keys.
const (
	FollowUpMarket       = "market"
	FollowUpConstruction = "construction"
	FollowUpNeighborhood = "neighborhood"
	FollowUpInvestment   = "investment"
	FollowUpGeneral      = "general"
)

// MaxFollowUps caps the suggestions attached to a response.
const MaxFollowUps = 3

var followUpTable = map[string][]string{
	FollowUpMarket: {
		"Which neighborhoods are trending upward?",
		"What's driving these market changes?",
		"How do these trends affect investment opportunities?",
	},
	FollowUpConstruction: {
		"What permits do I need for this project?",
		"How do material costs compare to last year?",
		"What's the typical timeline for construction?",
	},
	FollowUpNeighborhood: {
		"What are the investment prospects for this area?",
		"How do schools and amenities compare?",
		"What new developments are planned nearby?",
	},
	FollowUpInvestment: {
		"What financing options are available?",
		"Can you analyze a specific property's ROI potential?",
		"What are the tax implications?",
	},
	FollowUpGeneral: {
		"Tell me about Houston market trends",
		"What are current construction costs?",
		"Which neighborhoods should I consider?",
	},
}

// Suggest returns the canned follow-up questions for category, or the
// general list when category is unknown. The result is a fresh slice.
func Suggest(category string) []string {
	list, ok := followUpTable[category]
	if !ok {
		list = followUpTable[FollowUpGeneral]
	}
	return append([]string(nil), list...)
}

// FollowUpCategory maps a record category onto a follow-up table key.
func FollowUpCategory(category string) string {
	switch category {
	case analyzer.CategoryMarketTrends:
		return FollowUpMarket
	case analyzer.CategoryConstructionCosts:
		return FollowUpConstruction
	case analyzer.CategoryNeighborhood:
		return FollowUpNeighborhood
	case analyzer.CategoryInvestment:
		return FollowUpInvestment
	default:
		return FollowUpGeneral
	}
}

// ResolveFollowUpCategory accepts either a follow-up table key or a record
// category and returns the table key to use.
func ResolveFollowUpCategory(category string) string {
	if _, ok := followUpTable[category]; ok {
		return category
	}
	return FollowUpCategory(category)
}

// contextualFollowUps puts query-specific suggestions ahead of the category
// list for generated answers.
func contextualFollowUps(intel types.QueryIntelligence, category string) []string {
	var out []string
	if intel.Intent == types.IntentMarketInquiry {
		out = append(out, "Would you like neighborhood-specific data?")
	}
	if n := intel.Entities[types.EntityNeighborhood]; n != "" {
		out = append(out, "Would you like investment analysis for "+n+"?")
	}
	for _, s := range Suggest(FollowUpCategory(category)) {
		if len(out) == MaxFollowUps {
			break
		}
		out = append(out, s)
	}
	return out
}
