package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scrypster/keystone/pkg/types"
)

// Concept tags.
const (
	ConceptMarketAnalysis = "market_analysis"
	ConceptPricing        = "pricing"
	ConceptBuying         = "buying"
	ConceptSelling        = "selling"
	ConceptInvestment     = "investment"
	ConceptConstruction   = "construction"
	ConceptLocation       = "location"
	ConceptRegulatory     = "regulatory"
	ConceptFinancing      = "financing"
)

var stopwords = toSet(
	// function words
	"the", "is", "at", "which", "on", "a", "an", "and", "or", "but", "in", "with",
	"to", "for", "of", "as", "by", "that", "this", "it", "from", "be", "are",
	"been", "will", "would", "could", "should", "may", "might", "must", "can",
	"do", "does", "did", "has", "have", "had", "if", "was", "were", "not",
	"any", "some", "than", "then", "there", "their", "they", "into", "about",
	"you", "your", "our", "its",
	// question words and light verbs; intent detection reads the raw text
	"what", "how", "when", "where", "why", "who", "whom", "whose",
	"doing", "tell", "me",
)

// domainAbbreviations bypass the noise filter.
var domainAbbreviations = toSet("sqft", "mls", "ltv", "dti", "llc", "cpa", "hvac", "hoa", "faq", "qty", "iraq")

// impossibleBigrams essentially never occur inside English words.
var impossibleBigrams = []string{
	"kj", "jq", "jx", "jz", "qj", "qx", "qz", "vq", "vx", "vj", "xj", "xz",
	"zx", "zj", "fq", "fx", "gx", "px", "wx", "wq", "bx", "cx", "dx", "hx",
	"sx", "zq", "kq", "mq", "jb", "jc", "jd", "jf", "jg", "jh", "jk", "jl",
	"jm", "jn", "jp", "jr", "js", "jt", "jv", "jw",
}

// isNoise reports whether tok looks like keyboard mashing rather than a word.
func isNoise(tok string) bool {
	if _, ok := domainAbbreviations[tok]; ok {
		return false
	}

	hasLetter, hasDigit, hasVowel := false, false, false
	for _, r := range tok {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune("aeiouy", r):
			hasLetter, hasVowel = true, true
		case r >= 'a' && r <= 'z':
			hasLetter = true
		default:
			// Non-ASCII letters are not judged.
			return false
		}
	}
	if hasDigit {
		return false
	}
	if hasLetter && !hasVowel {
		return true
	}

	// A q followed by a consonant other than u ("qwe", "xzqt") is mashing;
	// q before a vowel ("qatar", "burqa") is left alone.
	for i := 0; i+1 < len(tok); i++ {
		if tok[i] == 'q' && !strings.ContainsRune("aeiouy", rune(tok[i+1])) {
			return true
		}
	}
	for _, bg := range impossibleBigrams {
		if strings.Contains(tok, bg) {
			return true
		}
	}
	return false
}

type conceptRule struct {
	concept string
	pattern *regexp.Regexp
}

// conceptRules are evaluated in order against the lowercase raw text.
// Patterns match word-initial stems so "listing" tags selling but
// "realistic" does not.
var conceptRules = []conceptRule{
	{ConceptMarketAnalysis, stems("market", "trend", "condition", "analy")},
	{ConceptPricing, stems("price", "pricing", "cost", "expensive", "cheap", "afford")},
	{ConceptBuying, stems("buy", "purchas")},
	{ConceptSelling, stems("sell", "list")},
	{ConceptInvestment, stems("invest", "roi", "return", "yield")},
	{ConceptConstruction, stems("build", "construct", "develop")},
	{ConceptLocation, stems("neighbor", "area", "location", "zone", "zoning")},
	{ConceptRegulatory, stems("permit", "regulat", "legal", "code")},
	{ConceptFinancing, stems("financ", "loan", "mortgage", "lend")},
}

type intentRule struct {
	intent types.Intent
	// interrogative gates the rule on a question word being present.
	interrogative bool
	pattern       *regexp.Regexp
}

func (r intentRule) matches(lower string) bool {
	if r.interrogative && !interrogativePattern.MatchString(lower) {
		return false
	}
	return r.pattern.MatchString(lower)
}

var interrogativePattern = regexp.MustCompile(`\b(?:what|how|when|where|why|tell me|explain)\b`)

// intentRules are evaluated in priority order; the first match wins.
var intentRules = []intentRule{
	{types.IntentMarketInquiry, true, stems("market", "trend")},
	{types.IntentCostInquiry, true, stems("cost", "price", "much")},
	{types.IntentNeighborhoodInquiry, true, stems("neighbor", "area", "location")},
	{types.IntentBuyingGuidance, true, stems("buy", "purchas")},
	{types.IntentSellingGuidance, true, stems("sell", "list")},
	{types.IntentInvestmentAnalysis, true, stems("invest", "roi")},
	{types.IntentAdviceSeeking, false, words("should", "can", "would", "could")},
	{types.IntentGreeting, false, words("hi", "hello", "hey", "help", "good morning", "good afternoon")},
}

type gazetteerEntry struct {
	name    string
	pattern *regexp.Regexp
}

// neighborhoods is checked in order; the first hit is reported.
var neighborhoods = gazetteer(
	"River Oaks", "The Woodlands", "Heights", "Montrose", "Memorial", "Katy",
	"Woodlands", "Cypress", "EaDo", "Downtown", "Midtown", "Bellaire",
	"Sugar Land", "Pearland", "Galleria", "Spring Branch",
)

var propertyTypes = gazetteer(
	"single family", "mixed use", "townhome", "townhouse", "condo",
	"apartment", "house", "land", "commercial",
)

var pricePattern = regexp.MustCompile(`(?i)(\$\s?)?(\d[\d,]*(?:\.\d+)?)\s*(million|thousand|k|m)?\b`)

// ExtractPrice finds the first price-like figure in text and returns it as a
// plain integer string ("$450k" -> "450000"). Bare numbers qualify only when
// they have five or more digits, so years are not mistaken for prices.
func ExtractPrice(text string) (string, bool) {
	for _, m := range pricePattern.FindAllStringSubmatch(text, -1) {
		currency, digits, suffix := m[1] != "", strings.ReplaceAll(m[2], ",", ""), strings.ToLower(m[3])
		if !currency && suffix == "" && len(strings.SplitN(digits, ".", 2)[0]) < 5 {
			continue
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		switch suffix {
		case "k", "thousand":
			v *= 1_000
		case "m", "million":
			v *= 1_000_000
		}
		return strconv.FormatInt(int64(v+0.5), 10), true
	}
	return "", false
}

func stems(prefixes ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(quoteAll(prefixes), "|") + `)`)
}

func words(ws ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(quoteAll(ws), "|") + `)\b`)
}

func gazetteer(names ...string) []gazetteerEntry {
	out := make([]gazetteerEntry, 0, len(names))
	for _, n := range names {
		out = append(out, gazetteerEntry{
			name:    n,
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(n)) + `\b`),
		})
	}
	return out
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = regexp.QuoteMeta(s)
	}
	return out
}

func toSet(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
