package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardWithOrderBonus_Identical(t *testing.T) {
	q := "What are the current Houston real estate market trends?"
	assert.Equal(t, 1.0, JaccardWithOrderBonus(q, q))
}

func TestJaccardWithOrderBonus_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, JaccardWithOrderBonus("condo prices downtown", "mortgage rates today"))
}

func TestJaccardWithOrderBonus_EmptySide(t *testing.T) {
	assert.Equal(t, 0.0, JaccardWithOrderBonus("", "houston market"))
	assert.Equal(t, 0.0, JaccardWithOrderBonus("houston market", "?!"))
	assert.Equal(t, 0.0, JaccardWithOrderBonus("asdlkj qwe", "asdlkj qwe"))
}

func TestJaccardWithOrderBonus_Value(t *testing.T) {
	// {houston, condo, prices} vs {houston, condo, taxes}: 2/4 + two aligned positions.
	assert.InDelta(t, 0.7, JaccardWithOrderBonus("houston condo prices", "houston condo taxes"), 1e-9)
	// Same overlap, no aligned positions.
	assert.InDelta(t, 0.5, JaccardWithOrderBonus("houston condo prices", "condo houston taxes"), 1e-9)
}

func TestJaccardWithOrderBonus_RewardsOrder(t *testing.T) {
	inOrder := JaccardWithOrderBonus("houston condo prices", "houston condo taxes")
	shuffled := JaccardWithOrderBonus("houston condo prices", "condo houston taxes")
	assert.Greater(t, inOrder, shuffled)
}

func TestJaccardWithOrderBonus_Bounds(t *testing.T) {
	texts := []string{
		"",
		"asdlkj qwe",
		"How is the Houston market doing?",
		"What are the current Houston real estate market trends?",
		"houston market trends houston market trends",
		"Construction costs per sqft in the Heights",
		"Is now a good time to buy a condo in Montrose for $450k?",
	}
	for _, a := range texts {
		for _, b := range texts {
			s := JaccardWithOrderBonus(a, b)
			assert.GreaterOrEqual(t, s, 0.0, "%q vs %q", a, b)
			assert.LessOrEqual(t, s, 1.0, "%q vs %q", a, b)
			assert.Equal(t, s, JaccardWithOrderBonus(a, b), "deterministic")
		}
	}
}

func TestOverlapRatio(t *testing.T) {
	assert.InDelta(t, 2.0/3.0, OverlapRatio([]string{"Houston", "MARKET"}, []string{"houston", "market", "trends"}), 1e-9)
	assert.Equal(t, 1.0, OverlapRatio([]string{"pricing"}, []string{"Pricing"}))
	assert.Equal(t, 0.0, OverlapRatio(nil, []string{"houston"}))
	assert.Equal(t, 0.0, OverlapRatio([]string{"houston"}, []string{}))
	assert.Equal(t, 0.0, OverlapRatio([]string{"a1"}, []string{"b2"}))
}

func TestOverlapRatio_DuplicatesCountOnce(t *testing.T) {
	assert.Equal(t, 1.0, OverlapRatio([]string{"houston", "houston"}, []string{"houston"}))
}

func TestFuzzyMatch(t *testing.T) {
	assert.True(t, FuzzyMatch("What's the Houston market like?", "whats the houston market like"))
	assert.True(t, FuzzyMatch("Houston market trends", "houston market trends!"))
	assert.False(t, FuzzyMatch("Houston market trends", "Construction costs in Katy"))
	assert.False(t, FuzzyMatch("", ""))
}

func TestFuzzyMatch_StopwordOnlyTexts(t *testing.T) {
	assert.Zero(t, JaccardWithOrderBonus("Who are you?", "who are you"))
	assert.True(t, FuzzyMatch("Who are you?", "who  are you"))
	assert.False(t, FuzzyMatch("Who are you?", "What are you doing?"))
}

func TestSameText(t *testing.T) {
	assert.True(t, SameText("What's up?", "whats up"))
	assert.True(t, SameText("Tell me\tmore!", "tell me more"))
	assert.False(t, SameText("tell me more", "tell me"))
	assert.False(t, SameText("?!", "..."))
}
