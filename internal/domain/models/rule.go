package models

// RuleKind identifies an evaluator and selects its aggregation weight.
type RuleKind string

const (
	RulePrice    RuleKind = "price"
	RuleVolume   RuleKind = "volume"
	RuleMomentum RuleKind = "momentum"
	RuleTrend    RuleKind = "trend"
)

// RuleOrder is the reporting order of rule results.
var RuleOrder = []RuleKind{RulePrice, RuleVolume, RuleMomentum, RuleTrend}

// RuleResult is the output of one evaluator. Confidence is on a 0-100
// scale whose meaning differs per rule.
type RuleResult struct {
	Kind       RuleKind `json:"kind"`
	IsBullish  bool     `json:"isBullish"`
	Triggered  bool     `json:"triggered"`
	Rule       string   `json:"rule"`
	Confidence float64  `json:"confidence"`
}

type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	}
	return false
}

// MultiRuleResult holds the ordered rule results (price, volume, momentum,
// trend) and the weighted verdict.
type MultiRuleResult struct {
	RuleResults       []RuleResult `json:"ruleResults"`
	OverallSignal     Signal       `json:"overallSignal"`
	OverallConfidence float64      `json:"overallConfidence"`
}

// Primary returns the first rule result, which is the price rule.
func (m MultiRuleResult) Primary() (RuleResult, bool) {
	if len(m.RuleResults) == 0 {
		return RuleResult{}, false
	}
	return m.RuleResults[0], true
}

// Triggered returns the triggered results in evaluation order.
func (m MultiRuleResult) Triggered() []RuleResult {
	out := make([]RuleResult, 0, len(m.RuleResults))
	for _, r := range m.RuleResults {
		if r.Triggered {
			out = append(out, r)
		}
	}
	return out
}
