package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/scrypster/keystone/internal/livedata"
	"github.com/scrypster/keystone/pkg/types"
)

// Source labels.
const (
	SourceTrainingData = "Training Data"
	SourceGenerated    = "Generated Response"
)

// ClarifyingResponse is returned when nothing usable can be said.
const ClarifyingResponse = "I'd be happy to help with your Houston real estate question. " +
	"Could you provide more specific details? I have access to market data, " +
	"construction costs, neighborhood analytics, and permit information."

var (
	totalSalesPattern = regexp.MustCompile(`(?i)\d[\d,]*(\s*total sales)`)
	dollarPattern     = regexp.MustCompile(`\$\d[\d,]*`)
	averagePattern    = regexp.MustCompile(`(?i)average`)
	wouldYouLike      = regexp.MustCompile(`Would you like`)
)

// Synthesizer turns a match (or its absence) into response text.
type Synthesizer struct{}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize builds the response body. FollowUps and Learning are left for
// the caller.
func (s *Synthesizer) Synthesize(match types.MatchResult, intel types.QueryIntelligence, facts livedata.Facts, history []types.Turn) *types.Response {
	if match.Matched() {
		return s.fromMatch(match, facts, history)
	}
	return s.generate(match, intel, facts)
}

func (s *Synthesizer) fromMatch(match types.MatchResult, facts livedata.Facts, history []types.Turn) *types.Response {
	qa := match.Candidate.QA()

	text := Refresh(qa.Answer, facts)
	if len(history) > 1 {
		text = Personalize(text)
	}

	source := qa.DataSource
	if source == "" {
		source = SourceTrainingData
	}

	return &types.Response{
		Text:       text,
		Confidence: types.ClampUnit(match.Score),
		Sources:    []string{source},
		MatchType:  match.MatchType,
	}
}

func (s *Synthesizer) generate(match types.MatchResult, intel types.QueryIntelligence, facts livedata.Facts) *types.Response {
	if !intel.HasSignal() {
		return clarifying()
	}

	if text, live, ok := template(intel, facts); ok {
		confidence := TemplateConfidence
		if live {
			confidence = TemplateLiveDataConfidence
		}
		return &types.Response{
			Text:       text,
			Confidence: confidence,
			Sources:    []string{SourceGenerated},
			MatchType:  types.MatchGenerated,
		}
	}

	if match.Fallback != nil {
		if qa := match.Fallback.Record.QA(); qa != nil {
			source := qa.DataSource
			if source == "" {
				source = SourceTrainingData
			}
			return &types.Response{
				Text:       qa.Answer,
				Confidence: FallbackConfidence,
				Sources:    []string{source},
				MatchType:  types.MatchGenerated,
			}
		}
	}

	return clarifying()
}

func clarifying() *types.Response {
	return &types.Response{
		Text:       ClarifyingResponse,
		Confidence: ClarifyingConfidence,
		Sources:    []string{SourceGenerated},
		MatchType:  types.MatchNone,
	}
}

// template composes an intent-specific answer. live reports whether any
// live figure was interpolated.
func template(intel types.QueryIntelligence, facts livedata.Facts) (text string, live bool, ok bool) {
	var b strings.Builder

	switch intel.Intent {
	case types.IntentGreeting:
		return "Hello! I can help with Houston real estate: market trends, construction costs, " +
			"neighborhoods, and investment analysis. What would you like to know?", false, true

	case types.IntentMarketInquiry:
		b.WriteString("I understand you're asking about Houston market conditions. ")
		if sales, price, ok := marketFigures(facts); ok {
			b.WriteString("Currently, we're seeing " + sales + " sales with average prices at " + price + ". ")
			live = true
		}
		if change, ok := facts.Float(livedata.KeyMarketSalesChangeYoY); ok && change != 0 {
			b.WriteString("Sales are " + direction(change) + " " + strconv.FormatFloat(abs(change), 'f', 1, 64) + "% year-over-year. ")
			live = true
		}

	case types.IntentNeighborhoodInquiry:
		name := intel.Entities[types.EntityNeighborhood]
		if name == "" {
			name = "Houston neighborhoods"
		}
		b.WriteString("I understand you're asking about " + name + ". ")
		if sentence, ok := neighborhoodDetail(facts); ok {
			b.WriteString(sentence + " ")
			live = true
		}

	case types.IntentCostInquiry:
		b.WriteString("I understand you're asking about costs and pricing. ")
		low, okLow := facts.Int(livedata.KeyCostsResidentialLow)
		high, okHigh := facts.Int(livedata.KeyCostsResidentialHigh)
		if okLow && okHigh {
			b.WriteString("Construction costs range from $" + humanize.Comma(low) + " to $" + humanize.Comma(high) + " per square foot. ")
			live = true
		}

	case types.IntentBuyingGuidance:
		b.WriteString("I understand you're asking about buying property in Houston. ")
		if price, ok := facts.Int(livedata.KeyMarketAvgSalePrice); ok {
			b.WriteString("The current average sale price is $" + humanize.Comma(price) + ". ")
			live = true
		}

	case types.IntentSellingGuidance:
		b.WriteString("I understand you're asking about selling property in Houston. ")
		if sales, price, ok := marketFigures(facts); ok {
			b.WriteString("The market recorded " + sales + " recent sales at an average of " + price + ". ")
			live = true
		}

	case types.IntentInvestmentAnalysis:
		b.WriteString("I understand you're asking about Houston real estate investment. ")
		if change, ok := facts.Float(livedata.KeyMarketSalesChangeYoY); ok && change != 0 {
			b.WriteString("Sales are " + direction(change) + " " + strconv.FormatFloat(abs(change), 'f', 1, 64) + "% year-over-year. ")
			live = true
		}

	default:
		return "", false, false
	}

	b.WriteString("Would you like more specific information?")
	return b.String(), live, true
}

func marketFigures(facts livedata.Facts) (sales, price string, ok bool) {
	total, okTotal := facts.Int(livedata.KeyMarketTotalSales)
	avg, okAvg := facts.Int(livedata.KeyMarketAvgSalePrice)
	if !okTotal || !okAvg {
		return "", "", false
	}
	return humanize.Comma(total), "$" + humanize.Comma(avg), true
}

func neighborhoodDetail(facts livedata.Facts) (string, bool) {
	total, okTotal := facts.Int(livedata.KeyNeighborhoodTotalSales)
	avg, okAvg := facts.Int(livedata.KeyNeighborhoodAvgSalePrice)
	if !okTotal || !okAvg {
		return "", false
	}
	sentence := "Recent data shows " + humanize.Comma(total) + " sales with an average price of $" + humanize.Comma(avg)
	if days, ok := facts.Int(livedata.KeyNeighborhoodDaysOnMarket); ok {
		sentence += ", and homes typically sell within " + strconv.FormatInt(days, 10) + " days"
	}
	return sentence + ".", true
}

// Refresh rewrites stored figures in answer with live ones and appends the
// data vintage and neighborhood detail when available.
func Refresh(answer string, facts livedata.Facts) string {
	if len(facts) == 0 {
		return answer
	}

	if total, ok := facts.Int(livedata.KeyMarketTotalSales); ok {
		answer = totalSalesPattern.ReplaceAllString(answer, humanize.Comma(total)+"${1}")
	}

	if avg, ok := facts.Int(livedata.KeyMarketAvgSalePrice); ok {
		answer = replaceAveragePrices(answer, "$"+humanize.Comma(avg))
	}

	if vintage, ok := marketVintage(facts); ok {
		answer += " (Updated: " + vintage + ")"
	}

	if name, ok := facts.String(livedata.KeyNeighborhoodName); ok {
		total, okTotal := facts.Int(livedata.KeyNeighborhoodTotalSales)
		avg, okAvg := facts.Int(livedata.KeyNeighborhoodAvgSalePrice)
		if okTotal && okAvg {
			answer += " Specifically for " + name + ", recent data shows " + humanize.Comma(total) +
				" sales with an average price of $" + humanize.Comma(avg) + "."
		}
	}

	return answer
}

// replaceAveragePrices replaces every dollar amount that has the word
// "average" somewhere after it on the same line.
func replaceAveragePrices(text, price string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		marks := averagePattern.FindAllStringIndex(line, -1)
		if len(marks) == 0 {
			continue
		}
		lastAverage := marks[len(marks)-1][0]

		var b strings.Builder
		prev := 0
		for _, loc := range dollarPattern.FindAllStringIndex(line, -1) {
			if loc[1] > lastAverage {
				break
			}
			b.WriteString(line[prev:loc[0]])
			b.WriteString(price)
			prev = loc[1]
		}
		b.WriteString(line[prev:])
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

// marketVintage formats the month and year of the market figures.
func marketVintage(facts livedata.Facts) (string, bool) {
	month, okMonth := facts.String(livedata.KeyMarketMonth)
	year, okYear := facts.Int(livedata.KeyMarketYear)
	if !okMonth || !okYear {
		return "", false
	}
	if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
		month = time.Month(n).String()
	}
	return month + " " + strconv.FormatInt(year, 10), true
}

// Personalize rewrites the first generic closing offer to reference the
// conversation so far.
func Personalize(text string) string {
	loc := wouldYouLike.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + "Based on our conversation, would you like" + text[loc[1]:]
}

func direction(change float64) string {
	if change > 0 {
		return "up"
	}
	return "down"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
