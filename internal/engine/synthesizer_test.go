package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/keystone/internal/analyzer"
	"github.com/scrypster/keystone/internal/livedata"
	"github.com/scrypster/keystone/pkg/types"
)

var marketFacts = livedata.Facts{
	livedata.KeyMarketTotalSales:   7842,
	livedata.KeyMarketAvgSalePrice: 412500,
}

func TestRefresh_ReplacesTotalsAndAverages(t *testing.T) {
	got := Refresh(houstonAnswer, marketFacts)
	assert.Equal(t,
		"Houston recorded 7,842 total sales. Homes sold for $412,500 on average. Would you like a breakdown by neighborhood?",
		got)
}

func TestRefresh_AverageMustFollowAmountOnSameLine(t *testing.T) {
	answer := "Median $300,000 and average $350,000.\nTop sale $2,000,000."
	got := Refresh(answer, livedata.Facts{livedata.KeyMarketAvgSalePrice: 412500})
	assert.Equal(t, "Median $412,500 and average $350,000.\nTop sale $2,000,000.", got)
}

func TestRefresh_AppendsVintage(t *testing.T) {
	for _, month := range []any{"3", "March"} {
		facts := livedata.Facts{livedata.KeyMarketMonth: month, livedata.KeyMarketYear: 2024}
		assert.Equal(t, "Prices are up. (Updated: March 2024)", Refresh("Prices are up.", facts))
	}
}

func TestRefresh_AppendsNeighborhood(t *testing.T) {
	facts := livedata.Facts{
		livedata.KeyNeighborhoodName:         "Heights",
		livedata.KeyNeighborhoodTotalSales:   96,
		livedata.KeyNeighborhoodAvgSalePrice: 689000,
	}
	assert.Equal(t,
		"Prices are up. Specifically for Heights, recent data shows 96 sales with an average price of $689,000.",
		Refresh("Prices are up.", facts))
}

func TestRefresh_NoFacts(t *testing.T) {
	assert.Equal(t, houstonAnswer, Refresh(houstonAnswer, nil))
	assert.Equal(t, houstonAnswer, Refresh(houstonAnswer, livedata.Facts{}))
}

func TestPersonalize(t *testing.T) {
	assert.Equal(t,
		"Here it is. Based on our conversation, would you like more? Would you like less?",
		Personalize("Here it is. Would you like more? Would you like less?"))
	assert.Equal(t, "No offer here.", Personalize("No offer here."))
}

func TestSynthesize_Match(t *testing.T) {
	rec := qaRecord("qa-1", houstonQuestion, houstonAnswer, nil, nil)
	match := types.MatchResult{Candidate: rec, Score: 0.8, MatchType: types.MatchSimilar}
	s := NewSynthesizer()

	resp := s.Synthesize(match, types.QueryIntelligence{}, nil, nil)
	assert.Equal(t, houstonAnswer, resp.Text)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, types.MatchSimilar, resp.MatchType)
	assert.Equal(t, []string{SourceTrainingData}, resp.Sources)

	rec.QA().DataSource = "HAR MLS"
	history := []types.Turn{{Role: types.RoleUser, Content: "hi"}, {Role: types.RoleAssistant, Content: "hello"}}
	resp = s.Synthesize(match, types.QueryIntelligence{}, nil, history)
	assert.Contains(t, resp.Text, "Based on our conversation, would you like a breakdown by neighborhood?")
	assert.Equal(t, []string{"HAR MLS"}, resp.Sources)
}

func TestSynthesize_MarketTemplate(t *testing.T) {
	intel := analyzer.Analyze("How is the Houston market doing?")
	require.Equal(t, types.IntentMarketInquiry, intel.Intent)
	none := types.MatchResult{MatchType: types.MatchNone}
	s := NewSynthesizer()

	resp := s.Synthesize(none, intel, marketFacts, nil)
	assert.Equal(t,
		"I understand you're asking about Houston market conditions. Currently, we're seeing 7,842 sales with average prices at $412,500. Would you like more specific information?",
		resp.Text)
	assert.Equal(t, TemplateLiveDataConfidence, resp.Confidence)
	assert.Equal(t, types.MatchGenerated, resp.MatchType)
	assert.Equal(t, []string{SourceGenerated}, resp.Sources)

	resp = s.Synthesize(none, intel, nil, nil)
	assert.Equal(t,
		"I understand you're asking about Houston market conditions. Would you like more specific information?",
		resp.Text)
	assert.Equal(t, TemplateConfidence, resp.Confidence)
}

func TestSynthesize_CostTemplate(t *testing.T) {
	intel := analyzer.Analyze("How much does it cost to build a house?")
	require.Equal(t, types.IntentCostInquiry, intel.Intent)
	facts := livedata.Facts{livedata.KeyCostsResidentialLow: 125, livedata.KeyCostsResidentialHigh: 300}

	resp := NewSynthesizer().Synthesize(types.MatchResult{MatchType: types.MatchNone}, intel, facts, nil)
	assert.Equal(t,
		"I understand you're asking about costs and pricing. Construction costs range from $125 to $300 per square foot. Would you like more specific information?",
		resp.Text)
	assert.Equal(t, TemplateLiveDataConfidence, resp.Confidence)
}

func TestSynthesize_NeighborhoodTemplate(t *testing.T) {
	intel := analyzer.Analyze("Tell me about the Montrose area")
	require.Equal(t, types.IntentNeighborhoodInquiry, intel.Intent)
	facts := livedata.Facts{
		livedata.KeyNeighborhoodName:         "Montrose",
		livedata.KeyNeighborhoodTotalSales:   120,
		livedata.KeyNeighborhoodAvgSalePrice: 550000,
		livedata.KeyNeighborhoodDaysOnMarket: 28,
	}

	resp := NewSynthesizer().Synthesize(types.MatchResult{MatchType: types.MatchNone}, intel, facts, nil)
	assert.Equal(t,
		"I understand you're asking about Montrose. Recent data shows 120 sales with an average price of $550,000, and homes typically sell within 28 days. Would you like more specific information?",
		resp.Text)
}

func TestSynthesize_Greeting(t *testing.T) {
	intel := analyzer.Analyze("Hello there")
	require.Equal(t, types.IntentGreeting, intel.Intent)

	resp := NewSynthesizer().Synthesize(types.MatchResult{MatchType: types.MatchNone}, intel, nil, nil)
	assert.Equal(t, types.MatchGenerated, resp.MatchType)
	assert.Equal(t, TemplateConfidence, resp.Confidence)
	assert.Contains(t, resp.Text, "Hello!")
}

func TestSynthesize_TrainingFallback(t *testing.T) {
	intel := analyzer.Analyze("Should I refinance now?")
	require.Equal(t, types.IntentAdviceSeeking, intel.Intent)

	rec := qaRecord("qa-rates", "When do mortgage rates drop?", "Rates tend to follow the 10-year Treasury.", nil, nil)
	rec.QA().DataSource = "Freddie Mac"
	match := types.MatchResult{MatchType: types.MatchNone, Score: 0.4, Fallback: &types.ScoredRecord{Record: rec, Score: 0.4}}

	resp := NewSynthesizer().Synthesize(match, intel, nil, nil)
	assert.Equal(t, "Rates tend to follow the 10-year Treasury.", resp.Text)
	assert.Equal(t, FallbackConfidence, resp.Confidence)
	assert.Equal(t, types.MatchGenerated, resp.MatchType)
	assert.Equal(t, []string{"Freddie Mac"}, resp.Sources)
}

func TestSynthesize_Clarifying(t *testing.T) {
	s := NewSynthesizer()

	advice := analyzer.Analyze("Should I refinance now?")
	resp := s.Synthesize(types.MatchResult{MatchType: types.MatchNone}, advice, marketFacts, nil)
	assert.Equal(t, ClarifyingResponse, resp.Text)
	assert.Equal(t, ClarifyingConfidence, resp.Confidence)
	assert.Equal(t, types.MatchNone, resp.MatchType)

	// No signal means no fallback either.
	rec := qaRecord("qa-rates", "When do mortgage rates drop?", "Rates tend to follow the 10-year Treasury.", nil, nil)
	match := types.MatchResult{MatchType: types.MatchNone, Fallback: &types.ScoredRecord{Record: rec, Score: 0.4}}
	resp = s.Synthesize(match, analyzer.Analyze("asdlkj qwe"), nil, nil)
	assert.Equal(t, ClarifyingResponse, resp.Text)
}
