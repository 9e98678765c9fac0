// Package engine answers real-estate questions from a corpus of stored
// question/answer records and learns from every exchange.
//
// A query is analyzed, scored against candidate records, and answered either
// from the best match (refreshed with live figures) or from an intent
// template. Unmatched queries that produced a useful answer are written back
// as new records so the next similar query matches directly.
package engine

import (
	"fmt"
)

// Match bands and scoring weights.
const (
	ExactThreshold   = 0.9
	SimilarThreshold = 0.75
	ConceptThreshold = 0.6
	LearnedThreshold = 0.5

	QuestionWeight  = 0.3
	KeywordWeight   = 0.25
	ConceptWeight   = 0.25
	VariationWeight = 0.2

	// VariationScore is assigned to a direct paraphrase hit.
	VariationScore = 0.85
)

// Response confidences on the generated path.
const (
	TemplateConfidence         = 0.6
	TemplateLiveDataConfidence = 0.7
	FallbackConfidence         = 0.6
	ClarifyingConfidence       = 0.5
)

// Config holds configuration for the assistant.
type Config struct {
	// QALimit is the number of qa candidates fetched per query (default: 20).
	QALimit int

	// VariationLimit is the number of variation candidates fetched per query (default: 10).
	VariationLimit int

	// LearnThreshold is the confidence a matched answer must exceed before the
	// exchange is recorded as an interaction (default: 0.7).
	LearnThreshold float64

	// LearnedImportance is the importance given to written-back qa records (default: 0.7).
	LearnedImportance float64

	// FallbackFloor is the minimum composite score for reusing the best
	// below-threshold candidate as a training fallback (default: 0.3).
	FallbackFloor float64

	// DedupeLearned skips the write-back when a pooled qa question already
	// fuzzy-matches the query (default: true).
	DedupeLearned bool

	// TermHints passes query keywords to the store as ranking hints (default: true).
	TermHints bool

	// ExtractPreferences records budget, location and property-type
	// preferences for identified users (default: true).
	ExtractPreferences bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QALimit:            20,
		VariationLimit:     10,
		LearnThreshold:     0.7,
		LearnedImportance:  0.7,
		FallbackFloor:      0.3,
		DedupeLearned:      true,
		TermHints:          true,
		ExtractPreferences: true,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.QALimit < 1 {
		return fmt.Errorf("QALimit must be >= 1, got %d", c.QALimit)
	}

	if c.VariationLimit < 0 {
		return fmt.Errorf("VariationLimit must be >= 0, got %d", c.VariationLimit)
	}

	if c.LearnThreshold < 0 || c.LearnThreshold > 1 {
		return fmt.Errorf("LearnThreshold must be in [0, 1], got %v", c.LearnThreshold)
	}

	if c.LearnedImportance < 0 || c.LearnedImportance > 1 {
		return fmt.Errorf("LearnedImportance must be in [0, 1], got %v", c.LearnedImportance)
	}

	if c.FallbackFloor < 0 || c.FallbackFloor > LearnedThreshold {
		return fmt.Errorf("FallbackFloor must be in [0, %v], got %v", LearnedThreshold, c.FallbackFloor)
	}

	return nil
}
