package models

import "errors"

var (
	ErrEmptyTicker           = errors.New("ticker is required")
	ErrInvalidSnapshot       = errors.New("invalid price snapshot")
	ErrSessionBusy           = errors.New("trading session is busy")
	ErrStateNotFound         = errors.New("trading session state not found")
	ErrMarketDataUnavailable = errors.New("market data unavailable")
)

// Output failures reported by the decision processor. A sink failure means
// nothing was written; a delivery failure means the CSV row exists but the
// backend did not accept the decision.
var (
	ErrDecisionSink     = errors.New("decision sink write failed")
	ErrDecisionDelivery = errors.New("decision delivery failed")
)
