package usecase

import (
	"time"

	"TradeCore/internal/domain/models"
)

// DefaultDecisionConfidence is used when no confidence is supplied.
const DefaultDecisionConfidence = 0.5

// DecisionFactory stamps decision records.
type DecisionFactory struct {
	now func() time.Time
}

func NewDecisionFactory() *DecisionFactory {
	return &DecisionFactory{now: time.Now}
}

// WithClock replaces the timestamp source.
func (f *DecisionFactory) WithClock(now func() time.Time) *DecisionFactory {
	return &DecisionFactory{now: now}
}

// Create builds a decision. prior is the state before the transition. A zero
// confidence means unset. TriggeredRules holds the primary rule's
// description only when that rule triggered.
func (f *DecisionFactory) Create(ticker string, prior models.TradeState, action models.Action, confidence float64, primary *models.RuleResult) models.TradeDecision {
	if confidence == 0 {
		confidence = DefaultDecisionConfidence
	}
	rules := []string{}
	if primary != nil && primary.Triggered {
		rules = append(rules, primary.Rule)
	}
	return models.TradeDecision{
		Ticker:         ticker,
		State:          prior,
		Action:         action,
		Confidence:     confidence,
		TriggeredRules: rules,
		Timestamp:      f.now().UTC().Truncate(time.Millisecond),
	}
}
