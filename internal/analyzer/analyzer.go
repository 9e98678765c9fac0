// Package analyzer derives keywords, concepts, intent and entities from
// free-text real-estate questions.
//
// Everything here is a pure function of the input text and the static rule
// tables in rules.go. Nothing returns an error: text with no recognizable
// content yields empty collections and the general_inquiry intent.
package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/scrypster/keystone/pkg/types"
)

// MaxKeywords caps the keywords kept per text to bound scoring cost.
const MaxKeywords = 12

// minKeywordLen is exclusive: tokens must be longer than this.
const minKeywordLen = 2

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Analyze derives the full QueryIntelligence for text.
func Analyze(text string) types.QueryIntelligence {
	return types.QueryIntelligence{
		Keywords: Keywords(text),
		Concepts: Concepts(text),
		Intent:   DetectIntent(text),
		Entities: ExtractEntities(text),
	}
}

// Keywords lowercases text, strips punctuation, splits on whitespace and
// keeps tokens that are longer than two characters, are not stopwords and
// are recognizable words. The result preserves first-appearance order,
// contains no duplicates and holds at most MaxKeywords entries.
func Keywords(text string) []string {
	return keywords(text, MaxKeywords)
}

func keywords(text string, limit int) []string {
	normalized := punctuation.ReplaceAllString(strings.ToLower(text), "")
	fields := strings.Fields(normalized)

	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, tok := range fields {
		if utf8.RuneCountInString(tok) <= minKeywordLen {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if isNoise(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Concepts applies the concept rules to the lowercase raw text. A text may
// carry zero, one or many concepts; each appears once, in rule order.
func Concepts(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, rule := range conceptRules {
		if rule.pattern.MatchString(lower) {
			out = append(out, rule.concept)
		}
	}
	return out
}

// DetectIntent returns the intent of the first matching rule in priority
// order, or general_inquiry when none match.
func DetectIntent(text string) types.Intent {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		if rule.matches(lower) {
			return rule.intent
		}
	}
	return types.IntentGeneralInquiry
}

// ExtractEntities scans the neighborhood and property-type gazetteers and
// pulls the first price-like figure out of text.
func ExtractEntities(text string) map[string]string {
	lower := strings.ToLower(text)
	entities := make(map[string]string)

	for _, n := range neighborhoods {
		if n.pattern.MatchString(lower) {
			entities[types.EntityNeighborhood] = n.name
			break
		}
	}

	for _, p := range propertyTypes {
		if p.pattern.MatchString(lower) {
			entities[types.EntityPropertyType] = p.name
			break
		}
	}

	if price, ok := ExtractPrice(text); ok {
		entities[types.EntityPrice] = price
	}

	return entities
}

// Category buckets used to tag learned records and choose follow-ups.
const (
	CategoryMarketTrends      = "market_trends"
	CategoryConstructionCosts = "construction_costs"
	CategoryInvestment        = "investment_analysis"
	CategoryNeighborhood      = "neighborhood_analysis"
	CategoryBuyer             = "buyer_guidance"
	CategorySeller            = "seller_advice"
	CategoryGeneral           = "general"
)

// Categorize picks the record category for a query from its concepts.
func Categorize(intel types.QueryIntelligence) string {
	switch {
	case intel.HasConcept(ConceptMarketAnalysis):
		return CategoryMarketTrends
	case intel.HasConcept(ConceptConstruction):
		return CategoryConstructionCosts
	case intel.HasConcept(ConceptInvestment):
		return CategoryInvestment
	case intel.HasConcept(ConceptLocation):
		return CategoryNeighborhood
	case intel.HasConcept(ConceptBuying):
		return CategoryBuyer
	case intel.HasConcept(ConceptSelling):
		return CategorySeller
	default:
		return CategoryGeneral
	}
}
