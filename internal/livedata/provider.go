// Package livedata supplies current market figures used to refresh
// stored answers. Providers are optional: every failure degrades to no
// enrichment.
package livedata

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/pkg/types"
)

// ErrUnavailable indicates that live data could not be retrieved.
var ErrUnavailable = errors.New("live data unavailable")

// Topic names a group of facts.
type Topic string

const (
	TopicMarket       Topic = "market"
	TopicCosts        Topic = "costs"
	TopicNeighborhood Topic = "neighborhood"
)

// Request selects the facts to fetch.
type Request struct {
	Topics       []Topic
	Neighborhood string
}

// Wants reports whether topic was requested.
func (r Request) Wants(topic Topic) bool {
	for _, t := range r.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Empty reports whether the request asks for nothing.
func (r Request) Empty() bool {
	return len(r.Topics) == 0
}

// key is a stable identifier used by caches.
func (r Request) key() string {
	topics := make([]string, 0, len(r.Topics))
	for _, t := range r.Topics {
		topics = append(topics, string(t))
	}
	sort.Strings(topics)
	return strings.Join(topics, ",") + "|" + strings.ToLower(strings.TrimSpace(r.Neighborhood))
}

// Provider fetches live facts.
type Provider interface {
	Fetch(ctx context.Context, req Request) (Facts, error)
}

// Nop is a Provider that never has data.
type Nop struct{}

// Fetch returns no facts.
func (Nop) Fetch(context.Context, Request) (Facts, error) {
	return nil, nil
}

// RequestFor derives the topics relevant to a query and, when known, the
// category of the record that will answer it.
func RequestFor(intel types.QueryIntelligence, category string) Request {
	var req Request
	add := func(t Topic) {
		if !req.Wants(t) {
			req.Topics = append(req.Topics, t)
		}
	}

	if intel.HasConcept(analyzer.ConceptMarketAnalysis) {
		add(TopicMarket)
	}
	if intel.HasConcept(analyzer.ConceptConstruction) || intel.HasConcept(analyzer.ConceptPricing) {
		add(TopicCosts)
	}

	switch category {
	case analyzer.CategoryMarketTrends:
		add(TopicMarket)
	case analyzer.CategoryConstructionCosts:
		add(TopicCosts)
	}

	if n := intel.Entities[types.EntityNeighborhood]; n != "" {
		add(TopicNeighborhood)
		req.Neighborhood = n
	}

	return req
}
