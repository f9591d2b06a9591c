package models

import "time"

// TradeDecision is the record produced once per cycle. State is the state
// before the transition; Action is the transition label.
type TradeDecision struct {
	Ticker         string     `json:"ticker"`
	State          TradeState `json:"state"`
	Action         Action     `json:"action"`
	Confidence     float64    `json:"confidence"`
	TriggeredRules []string   `json:"triggeredRules"`
	Timestamp      time.Time  `json:"timestamp"`
}

// CycleResult is everything one trade cycle produced.
type CycleResult struct {
	Ticker     string          `json:"ticker"`
	Session    string          `json:"session"`
	MarketData *MarketData     `json:"marketData"`
	Evaluation MultiRuleResult `json:"evaluation"`
	Transition Transition      `json:"transition"`
	Decision   TradeDecision   `json:"decision"`
}

// UniverseItem is the per-ticker outcome of a universe run.
type UniverseItem struct {
	Ticker string       `json:"ticker"`
	Result *CycleResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}
