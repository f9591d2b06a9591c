package usecase

import (
	"sync"

	"TradeCore/internal/domain/models"
	domsvc "TradeCore/internal/domain/service"
	"TradeCore/pkg/config"
	"TradeCore/pkg/util"
)

// AggregatorConfig holds the weighted-vote parameters.
type AggregatorConfig struct {
	// DominanceRatio is how much one side's weight must exceed the other's
	// to produce BUY or SELL.
	DominanceRatio     float64
	HoldConfidence     float64
	BoostFactor        float64
	AgreementThreshold float64
	Weights            map[models.RuleKind]float64
}

const defaultRuleWeight = 1.0

// DefaultAggregatorConfig returns the stock weights and thresholds.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		DominanceRatio:     1.2,
		HoldConfidence:     0.4,
		BoostFactor:        1.3,
		AgreementThreshold: 0.6,
		Weights: map[models.RuleKind]float64{
			models.RulePrice:    1.5,
			models.RuleVolume:   1.2,
			models.RuleMomentum: 1.3,
			models.RuleTrend:    1.4,
		},
	}
}

// AggregatorConfigFrom maps the config file section.
func AggregatorConfigFrom(c config.AggregatorConfig) AggregatorConfig {
	return AggregatorConfig{
		DominanceRatio:     c.DominanceRatio,
		HoldConfidence:     c.HoldConfidence,
		BoostFactor:        c.BoostFactor,
		AgreementThreshold: c.AgreementThreshold,
		Weights: map[models.RuleKind]float64{
			models.RulePrice:    c.Weights.Price,
			models.RuleVolume:   c.Weights.Volume,
			models.RuleMomentum: c.Weights.Momentum,
			models.RuleTrend:    c.Weights.Trend,
		},
	}
}

func (c AggregatorConfig) weight(kind models.RuleKind) float64 {
	if w, ok := c.Weights[kind]; ok {
		return w
	}
	return defaultRuleWeight
}

// SignalAggregator runs the rule evaluators and folds their results into a
// single weighted signal. It holds no mutable state.
type SignalAggregator struct {
	rules []domsvc.RuleEvaluator
	cfg   AggregatorConfig
}

func NewSignalAggregator(rules []domsvc.RuleEvaluator, cfg AggregatorConfig) *SignalAggregator {
	return &SignalAggregator{rules: rules, cfg: cfg}
}

// Evaluate runs every evaluator concurrently and aggregates. Results keep
// the evaluator order regardless of completion order.
func (a *SignalAggregator) Evaluate(s models.PriceSnapshot) models.MultiRuleResult {
	results := make([]models.RuleResult, len(a.rules))

	var wg sync.WaitGroup
	for i, r := range a.rules {
		wg.Add(1)
		go func(i int, r domsvc.RuleEvaluator) {
			defer wg.Done()
			results[i] = r.Evaluate(s)
		}(i, r)
	}
	wg.Wait()

	return a.Aggregate(results)
}

// Aggregate computes the overall signal from fixed rule results.
func (a *SignalAggregator) Aggregate(results []models.RuleResult) models.MultiRuleResult {
	out := models.MultiRuleResult{
		RuleResults:   append([]models.RuleResult(nil), results...),
		OverallSignal: models.SignalHold,
	}

	var bullish, bearish float64
	triggered := 0
	for _, r := range results {
		if !r.Triggered {
			continue
		}
		triggered++
		if r.IsBullish {
			bullish += a.cfg.weight(r.Kind)
		} else {
			bearish += a.cfg.weight(r.Kind)
		}
	}
	total := bullish + bearish
	if triggered == 0 || total <= 0 {
		return out
	}

	var confidence float64
	switch {
	case bullish > bearish*a.cfg.DominanceRatio:
		out.OverallSignal = models.SignalBuy
		confidence = bullish / total
	case bearish > bullish*a.cfg.DominanceRatio:
		out.OverallSignal = models.SignalSell
		confidence = bearish / total
	default:
		confidence = a.cfg.HoldConfidence
	}

	agreement := bullish
	if bearish > agreement {
		agreement = bearish
	}
	if agreement/total > a.cfg.AgreementThreshold {
		confidence *= a.cfg.BoostFactor
		if confidence > 1 {
			confidence = 1
		}
	}

	out.OverallConfidence = util.Round2(confidence)
	return out
}
