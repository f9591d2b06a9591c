package rules

import (
	"TradeCore/internal/domain/models"
	domsvc "TradeCore/internal/domain/service"
)

// TrendInsufficientLabel is reported when the day range is unusable.
const TrendInsufficientLabel = "trend: insufficient data"

const (
	trendBullishPosition  = 0.7
	trendOversoldPosition = 0.3
	trendMeaningfulRange  = 0.02
)

// TrendRule locates the price within the intraday high/low range.
type TrendRule struct{}

var _ domsvc.RuleEvaluator = TrendRule{}

func (TrendRule) Kind() models.RuleKind { return models.RuleTrend }

func (TrendRule) Evaluate(s models.PriceSnapshot) models.RuleResult {
	insufficient := models.RuleResult{Kind: models.RuleTrend, Rule: TrendInsufficientLabel}
	if s.DayHigh == nil || s.DayLow == nil {
		return insufficient
	}
	dayRange := *s.DayHigh - *s.DayLow
	if dayRange <= 0 {
		return insufficient
	}

	position := (s.Price - *s.DayLow) / dayRange
	bullish := position > trendBullishPosition

	rule := "trend: neutral (mid-range)"
	switch {
	case bullish:
		rule = "trend: bullish (upper range)"
	case position < trendOversoldPosition:
		rule = "trend: oversold (lower range)"
	}

	return models.RuleResult{
		Kind:       models.RuleTrend,
		IsBullish:  bullish,
		Triggered:  dayRange > s.Price*trendMeaningfulRange,
		Rule:       rule,
		Confidence: trendConfidence(position),
	}
}

// trendConfidence bands the position; near the low is read as a likely bounce.
func trendConfidence(position float64) float64 {
	switch {
	case position > 0.8:
		return 80
	case position > 0.6:
		return 60
	case position < 0.3:
		return 75
	case position < 0.5:
		return 50
	default:
		return 30
	}
}
