// Package similarity scores how close two questions or tag lists are.
// All functions are pure and deterministic and return values in [0, 1].
package similarity

import (
	"strings"
	"unicode"

	"github.com/scrypster/keystone/internal/analyzer"
)

const (
	// OrderBonus is added for every position at which both keyword
	// sequences hold the same token.
	OrderBonus = 0.1

	// FuzzyThreshold is the score JaccardWithOrderBonus must exceed for two
	// texts to count as paraphrases.
	FuzzyThreshold = 0.7
)

// JaccardWithOrderBonus compares the keyword sets of a and b:
// |A∩B| / |A∪B| plus OrderBonus for each aligned position, capped at 1.0.
// It returns 0 when either text has no keywords.
func JaccardWithOrderBonus(a, b string) float64 {
	return jaccardTokens(analyzer.Keywords(a), analyzer.Keywords(b))
}

func jaccardTokens(ta, tb []string) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		setA[t] = struct{}{}
	}

	intersection := 0
	union := len(setA)
	seenB := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		if _, dup := seenB[t]; dup {
			continue
		}
		seenB[t] = struct{}{}
		if _, ok := setA[t]; ok {
			intersection++
		} else {
			union++
		}
	}

	score := float64(intersection) / float64(union)

	for i := 0; i < len(ta) && i < len(tb); i++ {
		if ta[i] == tb[i] {
			score += OrderBonus
		}
	}

	return min(score, 1.0)
}

// OverlapRatio is the case-insensitive intersection size of the two lists
// divided by the larger of the two set sizes. Empty input yields 0.
func OverlapRatio(a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(max(len(setA), len(setB)))
}

// FuzzyMatch reports whether a and b are paraphrases of each other. Texts
// that normalize to the same string always match, even when every word in
// them is a stopword.
func FuzzyMatch(a, b string) bool {
	return SameText(a, b) || JaccardWithOrderBonus(a, b) > FuzzyThreshold
}

// SameText reports whether a and b are equal once case, punctuation and
// spacing are ignored. Blank texts never match.
func SameText(a, b string) bool {
	na := normalize(a)
	return na != "" && na == normalize(b)
}

func normalize(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
		case r == '\'' || r == '’':
			// "what's" and "whats" are the same word.
		default:
			space = true
		}
	}
	return sb.String()
}

func lowerSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it == "" {
			continue
		}
		m[it] = struct{}{}
	}
	return m
}
