package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content is the kind-specific payload of a MemoryRecord.
// The set of implementations is closed: QAContent, VariationContent,
// InteractionContent, PreferenceContent and InsightContent.
type Content interface {
	Kind() RecordKind
	Validate() error

	sealed()
}

// QAContent is a question with its answer and matching metadata.
type QAContent struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Keywords   []string `json:"keywords,omitempty"`
	Concepts   []string `json:"concepts,omitempty"`
	Variations []string `json:"variations,omitempty"`
	Category   string   `json:"category,omitempty"`
	DataSource string   `json:"data_source,omitempty"`

	// Learned marks records written back by the learning loop.
	Learned bool `json:"learned,omitempty"`
}

func (*QAContent) Kind() RecordKind { return KindQA }
func (*QAContent) sealed()          {}

// Validate requires non-blank question and answer text.
func (c *QAContent) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("%w: qa record has no question", ErrMalformedRecord)
	}
	if strings.TrimSpace(c.Answer) == "" {
		return fmt.Errorf("%w: qa record has no answer", ErrMalformedRecord)
	}
	return nil
}

// VariationContent is a paraphrase pointing at exactly one parent qa record,
// identified by ID or, when the ID is unknown, by the parent's question text.
type VariationContent struct {
	Text           string `json:"text"`
	ParentID       string `json:"parent_id,omitempty"`
	ParentQuestion string `json:"parent_question,omitempty"`
}

func (*VariationContent) Kind() RecordKind { return KindVariation }
func (*VariationContent) sealed()          {}

// Validate requires paraphrase text and a parent reference.
func (c *VariationContent) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("%w: variation record has no text", ErrMalformedRecord)
	}
	if c.ParentID == "" && strings.TrimSpace(c.ParentQuestion) == "" {
		return fmt.Errorf("%w: variation record has no parent", ErrMalformedRecord)
	}
	return nil
}

// InteractionContent records an answered exchange for audit and analytics.
type InteractionContent struct {
	Query           string    `json:"query"`
	Response        string    `json:"response"`
	Confidence      float64   `json:"confidence"`
	MatchType       MatchType `json:"match_type"`
	MatchedID       string    `json:"matched_id,omitempty"`
	MatchedQuestion string    `json:"matched_question,omitempty"`
	Sources         []string  `json:"sources,omitempty"`
}

func (*InteractionContent) Kind() RecordKind { return KindInteraction }
func (*InteractionContent) sealed()          {}

// Validate requires the query and the response text.
func (c *InteractionContent) Validate() error {
	if strings.TrimSpace(c.Query) == "" || strings.TrimSpace(c.Response) == "" {
		return fmt.Errorf("%w: interaction record needs query and response", ErrMalformedRecord)
	}
	return nil
}

// Preference types extracted from conversation.
const (
	PreferenceBudget       = "budget"
	PreferenceLocation     = "location"
	PreferencePropertyType = "property_type"
)

// PreferenceContent is a single user preference (e.g. budget=450k).
type PreferenceContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (*PreferenceContent) Kind() RecordKind { return KindPreference }
func (*PreferenceContent) sealed()          {}

func (c *PreferenceContent) Validate() error {
	if c.Type == "" || c.Value == "" {
		return fmt.Errorf("%w: preference record needs type and value", ErrMalformedRecord)
	}
	return nil
}

// InsightContent is an insight produced outside this engine.
type InsightContent struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

func (*InsightContent) Kind() RecordKind { return KindInsight }
func (*InsightContent) sealed()          {}

func (c *InsightContent) Validate() error {
	if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("%w: insight record is empty", ErrMalformedRecord)
	}
	return nil
}

// NewContent returns an empty payload for kind, ready to be unmarshalled into.
func NewContent(kind RecordKind) (Content, error) {
	switch kind {
	case KindQA:
		return &QAContent{}, nil
	case KindVariation:
		return &VariationContent{}, nil
	case KindInteraction:
		return &InteractionContent{}, nil
	case KindPreference:
		return &PreferenceContent{}, nil
	case KindInsight:
		return &InsightContent{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, kind)
	}
}

// MarshalContent encodes a payload for storage.
func MarshalContent(c Content) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil content", ErrMalformedRecord)
	}
	return json.Marshal(c)
}

// UnmarshalContent decodes a stored payload of the given kind.
func UnmarshalContent(kind RecordKind, data []byte) (Content, error) {
	c, err := NewContent(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: decode %s content: %v", ErrMalformedRecord, kind, err)
	}
	return c, nil
}

// UnmarshalJSON decodes a record whose content is dispatched on its kind.
func (r *MemoryRecord) UnmarshalJSON(data []byte) error {
	type alias MemoryRecord
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Content) == 0 || string(aux.Content) == "null" {
		r.Content = nil
		return nil
	}
	c, err := UnmarshalContent(r.Kind, aux.Content)
	if err != nil {
		return err
	}
	r.Content = c
	return nil
}
