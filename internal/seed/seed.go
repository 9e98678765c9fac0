// Package seed loads authored question/answer corpora from YAML files and
// keeps them in sync with the store while the files change.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/pkg/types"
)

// ErrInvalidSeed is returned for seed files that cannot be loaded.
var ErrInvalidSeed = errors.New("invalid seed file")

const (
	// DefaultImportance applies to entries that do not set one.
	DefaultImportance = 0.8

	// VariationImportanceFactor scales a parent's importance for its variations.
	VariationImportanceFactor = 0.9
)

var seedNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("keystone/seed"))

// File is the YAML layout of a seed file.
type File struct {
	Entries []Entry `yaml:"entries"`
}

// Entry is one authored question/answer pair.
type Entry struct {
	Question   string   `yaml:"question"`
	Answer     string   `yaml:"answer"`
	Category   string   `yaml:"category"`
	DataSource string   `yaml:"data_source"`
	Importance float64  `yaml:"importance"`
	Keywords   []string `yaml:"keywords"`
	Concepts   []string `yaml:"concepts"`
	Variations []string `yaml:"variations"`
}

// Stats counts the records written by a load.
type Stats struct {
	Files      int `json:"files"`
	QA         int `json:"qa"`
	Variations int `json:"variations"`
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.QA += o.QA
	s.Variations += o.Variations
}

// QAID returns the deterministic record ID for a seeded question.
func QAID(question string) string {
	return uuid.NewSHA1(seedNamespace, []byte(normalize(question))).String()
}

// VariationID returns the deterministic record ID for a paraphrase of parentID.
func VariationID(parentID, text string) string {
	return uuid.NewSHA1(seedNamespace, []byte(parentID+"|"+normalize(text))).String()
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsSeedFile reports whether path has a YAML extension.
func IsSeedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load upserts every entry of the seed file at path, or of every seed file
// in path when it is a directory (in name order). Loading the same files
// twice leaves the store unchanged.
func Load(ctx context.Context, store storage.CorpusStore, path string) (Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stats{}, fmt.Errorf("seed: %w", err)
	}
	if !info.IsDir() {
		return LoadFile(ctx, store, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Stats{}, fmt.Errorf("seed: read dir %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsSeedFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var total Stats
	for _, name := range names {
		st, err := LoadFile(ctx, store, filepath.Join(path, name))
		total.add(st)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// LoadFile upserts the entries of a single seed file. The whole file is
// validated before anything is written.
func LoadFile(ctx context.Context, store storage.CorpusStore, path string) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("seed: %w", err)
	}

	recs, err := Parse(data)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	st := Stats{Files: 1}
	for _, rec := range recs {
		if _, err := store.WriteRecord(ctx, rec); err != nil {
			return st, fmt.Errorf("seed: write %s record %s: %w", rec.Kind, rec.ID, err)
		}
		switch rec.Kind {
		case types.KindQA:
			st.QA++
		case types.KindVariation:
			st.Variations++
		}
	}
	return st, nil
}

// Parse decodes seed YAML into the records it declares: one qa record per
// entry followed by one variation record per paraphrase.
func Parse(data []byte) ([]storage.NewRecord, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	var recs []storage.NewRecord
	for i, e := range f.Entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("%w: entry %d needs question and answer", ErrInvalidSeed, i)
		}
		if e.Importance < 0 || e.Importance > 1 {
			return nil, fmt.Errorf("%w: entry %d importance %v out of range", ErrInvalidSeed, i, e.Importance)
		}
		recs = append(recs, e.records()...)
	}
	return recs, nil
}

func (e Entry) records() []storage.NewRecord {
	importance := e.Importance
	if importance == 0 {
		importance = DefaultImportance
	}

	intel := analyzer.Analyze(e.Question)
	keywords := e.Keywords
	if len(keywords) == 0 {
		keywords = intel.Keywords
	}
	concepts := e.Concepts
	if len(concepts) == 0 {
		concepts = intel.Concepts
	}
	category := e.Category
	if category == "" {
		category = analyzer.Categorize(intel)
	}

	variations := make([]string, 0, len(e.Variations))
	for _, v := range e.Variations {
		if v = strings.TrimSpace(v); v != "" {
			variations = append(variations, v)
		}
	}

	id := QAID(e.Question)
	question := strings.TrimSpace(e.Question)
	recs := []storage.NewRecord{{
		ID:   id,
		Kind: types.KindQA,
		Content: &types.QAContent{
			Question:   question,
			Answer:     strings.TrimSpace(e.Answer),
			Keywords:   keywords,
			Concepts:   concepts,
			Variations: variations,
			Category:   category,
			DataSource: e.DataSource,
		},
		Importance: importance,
	}}

	for _, v := range variations {
		recs = append(recs, storage.NewRecord{
			ID:   VariationID(id, v),
			Kind: types.KindVariation,
			Content: &types.VariationContent{
				Text:           v,
				ParentID:       id,
				ParentQuestion: question,
			},
			Importance: importance * VariationImportanceFactor,
		})
	}
	return recs
}
