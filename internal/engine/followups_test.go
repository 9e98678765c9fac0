package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/keystone/internal/analyzer"
)

func TestSuggest_Deterministic(t *testing.T) {
	want := []string{
		"Which neighborhoods are trending upward?",
		"What's driving these market changes?",
		"How do these trends affect investment opportunities?",
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, Suggest(FollowUpMarket))
	}
}

func TestSuggest_UnknownCategoryFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, Suggest(FollowUpGeneral), Suggest("zoning"))
	assert.Equal(t, Suggest(FollowUpGeneral), Suggest(""))
}

func TestSuggest_ReturnsCopy(t *testing.T) {
	got := Suggest(FollowUpInvestment)
	got[0] = "changed"
	assert.Equal(t, "What financing options are available?", Suggest(FollowUpInvestment)[0])
}

func TestSuggest_AtMostThree(t *testing.T) {
	for _, c := range []string{FollowUpMarket, FollowUpConstruction, FollowUpNeighborhood, FollowUpInvestment, FollowUpGeneral} {
		assert.Len(t, Suggest(c), MaxFollowUps, c)
	}
}

func TestFollowUpCategory(t *testing.T) {
	assert.Equal(t, FollowUpMarket, FollowUpCategory(analyzer.CategoryMarketTrends))
	assert.Equal(t, FollowUpConstruction, FollowUpCategory(analyzer.CategoryConstructionCosts))
	assert.Equal(t, FollowUpNeighborhood, FollowUpCategory(analyzer.CategoryNeighborhood))
	assert.Equal(t, FollowUpInvestment, FollowUpCategory(analyzer.CategoryInvestment))
	assert.Equal(t, FollowUpGeneral, FollowUpCategory(analyzer.CategoryBuyer))
	assert.Equal(t, FollowUpGeneral, FollowUpCategory("unknown"))
}

func TestContextualFollowUps(t *testing.T) {
	intel := analyzer.Analyze("How is the market in the Heights?")
	got := contextualFollowUps(intel, analyzer.CategoryMarketTrends)
	assert.Equal(t, []string{
		"Would you like neighborhood-specific data?",
		"Would you like investment analysis for Heights?",
		"Which neighborhoods are trending upward?",
	}, got)
}

func TestContextualFollowUps_NoContext(t *testing.T) {
	intel := analyzer.Analyze("Where should I invest?")
	assert.Equal(t, Suggest(FollowUpInvestment), contextualFollowUps(intel, analyzer.CategoryInvestment))
}

func TestResolveFollowUpCategory(t *testing.T) {
	assert.Equal(t, FollowUpConstruction, ResolveFollowUpCategory(FollowUpConstruction))
	assert.Equal(t, FollowUpConstruction, ResolveFollowUpCategory(analyzer.CategoryConstructionCosts))
	assert.Equal(t, FollowUpGeneral, ResolveFollowUpCategory("nonsense"))
}
