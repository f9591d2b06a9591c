// Package rules holds the four stateless snapshot evaluators.
package rules

import (
	domsvc "TradeCore/internal/domain/service"
)

// Default returns the evaluators in reporting order: price, volume,
// momentum, trend.
func Default() []domsvc.RuleEvaluator {
	return []domsvc.RuleEvaluator{
		PriceRule{},
		NewVolumeRule(nil),
		MomentumRule{},
		TrendRule{},
	}
}

func optional(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
