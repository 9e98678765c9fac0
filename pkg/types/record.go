package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedRecord indicates a record whose content is missing fields
// required for its kind (e.g. a qa record without question text).
var ErrMalformedRecord = errors.New("malformed record")

// RecordKind discriminates the payload carried by a MemoryRecord.
type RecordKind string

const (
	// KindQA is a question/answer pair that can answer future queries.
	KindQA RecordKind = "qa"

	// KindVariation is a paraphrase of a qa record's question.
	KindVariation RecordKind = "variation"

	// KindInteraction is an audit entry for an answered exchange.
	// Interactions are never scored as candidates.
	KindInteraction RecordKind = "interaction"

	// KindPreference is a user preference extracted from conversation.
	KindPreference RecordKind = "preference"

	// KindInsight is a free-form insight produced by an external collaborator.
	KindInsight RecordKind = "insight"
)

// IsValid reports whether k is a known record kind.
func (k RecordKind) IsValid() bool {
	switch k {
	case KindQA, KindVariation, KindInteraction, KindPreference, KindInsight:
		return true
	default:
		return false
	}
}

// Scope optionally ties a record to a user and/or session.
// The zero value is a global record.
type Scope struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// IsGlobal reports whether the scope carries no owner.
func (s Scope) IsGlobal() bool {
	return s.UserID == "" && s.SessionID == ""
}

// MemoryRecord is the unit of retrievable knowledge in the corpus.
type MemoryRecord struct {
	ID   string     `json:"id"`
	Kind RecordKind `json:"kind"`

	// Content holds the kind-specific payload. Its Kind() always equals Kind.
	Content Content `json:"content"`

	// Importance is set at write time (0.0-1.0) and breaks ranking ties.
	Importance float64 `json:"importance"`

	// Bookkeeping updated every time the record is fetched as a candidate.
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Scope Scope `json:"scope"`
}

// QA returns the record's qa payload, or nil if the record is another kind.
func (r *MemoryRecord) QA() *QAContent {
	if r == nil {
		return nil
	}
	qa, _ := r.Content.(*QAContent)
	return qa
}

// Variation returns the record's variation payload, or nil.
func (r *MemoryRecord) Variation() *VariationContent {
	if r == nil {
		return nil
	}
	v, _ := r.Content.(*VariationContent)
	return v
}

// Validate checks the envelope and the payload of the record.
func (r *MemoryRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, r.Kind)
	}
	if r.Content == nil {
		return fmt.Errorf("%w: %s record %s has no content", ErrMalformedRecord, r.Kind, r.ID)
	}
	if r.Content.Kind() != r.Kind {
		return fmt.Errorf("%w: %s record carries %s content", ErrMalformedRecord, r.Kind, r.Content.Kind())
	}
	return r.Content.Validate()
}

// SearchText returns the lowercase text a store matches term hints against.
// For qa records this is the question, keywords, concepts and variations;
// for variations the paraphrase text and the parent question.
func SearchText(kind RecordKind, c Content) string {
	var parts []string
	switch v := c.(type) {
	case *QAContent:
		parts = append(parts, v.Question)
		parts = append(parts, v.Keywords...)
		parts = append(parts, v.Concepts...)
		parts = append(parts, v.Variations...)
	case *VariationContent:
		parts = append(parts, v.Text, v.ParentQuestion)
	case *InteractionContent:
		parts = append(parts, v.Query)
	case *PreferenceContent:
		parts = append(parts, v.Type, v.Value)
	case *InsightContent:
		parts = append(parts, v.Title)
		parts = append(parts, v.Tags...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// ClampUnit clamps v into [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
