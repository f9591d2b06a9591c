package rules

import (
	"math"

	"TradeCore/internal/domain/models"
	domsvc "TradeCore/internal/domain/service"
	"TradeCore/pkg/util"
)

// PriceRuleLabel is the description of the price-vs-moving-average rule.
const PriceRuleLabel = "price > 50-DMA"

const (
	priceTriggerDiff = 0.01
	gapThreshold     = 0.02
)

// PriceRule compares price against the 50-day moving average.
type PriceRule struct{}

var _ domsvc.RuleEvaluator = PriceRule{}

func (PriceRule) Kind() models.RuleKind { return models.RulePrice }

func (PriceRule) Evaluate(s models.PriceSnapshot) models.RuleResult {
	res := models.RuleResult{
		Kind:      models.RulePrice,
		IsBullish: s.Price > s.MovingAverage,
		Rule:      PriceRuleLabel,
	}

	ma := s.MovingAverage
	if ma > 0 {
		diff := math.Abs(s.Price-ma) / ma
		res.Triggered = diff > priceTriggerDiff
		res.Confidence = util.Round2(math.Min(diff*100, 100))
	}

	// previous close falls back to the moving average; zero counts as absent
	prev := optional(s.PreviousClose, 0)
	if prev <= 0 {
		prev = ma
	}
	if prev > 0 {
		gap := (s.Price - prev) / prev
		switch {
		case gap > gapThreshold:
			res.Rule += " + gap up"
		case gap < -gapThreshold:
			res.Rule += " + gap down"
		}
	}
	return res
}
