package service

import "TradeCore/internal/domain/models"

// RuleEvaluator scores a price snapshot. Implementations are pure and safe
// for concurrent use.
type RuleEvaluator interface {
	Kind() models.RuleKind
	Evaluate(s models.PriceSnapshot) models.RuleResult
}
