package rules

import (
	"fmt"
	"math"

	"TradeCore/internal/domain/models"
	domsvc "TradeCore/internal/domain/service"
)

const (
	momentumBullish = 0.01
	momentumTrigger = 0.005
)

// MomentumRule measures the change against the previous close.
//
// Without a previous close the change is zero and the rule never
// triggers.
type MomentumRule struct{}

var _ domsvc.RuleEvaluator = MomentumRule{}

func (MomentumRule) Kind() models.RuleKind { return models.RuleMomentum }

func (MomentumRule) Evaluate(s models.PriceSnapshot) models.RuleResult {
	prev := optional(s.PreviousClose, 0)
	if prev <= 0 {
		prev = s.Price
	}
	var change float64
	if prev > 0 {
		change = (s.Price - prev) / prev
	}

	return models.RuleResult{
		Kind:       models.RuleMomentum,
		IsBullish:  change > momentumBullish,
		Triggered:  math.Abs(change) > momentumTrigger,
		Rule:       fmt.Sprintf("momentum: %.2f%%", change*100),
		Confidence: math.Min(math.Abs(change)*1000, 100),
	}
}
