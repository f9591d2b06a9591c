package models

import (
	"fmt"
	"time"
)

// PriceSnapshot is the immutable per-cycle input of the rule evaluators.
// Optional fields are nil when the collaborator could not supply them.
type PriceSnapshot struct {
	Ticker        string   `json:"ticker" validate:"required"`
	Price         float64  `json:"price" validate:"gt=0"`
	MovingAverage float64  `json:"movingAverage" validate:"gt=0"`
	Volume        *float64 `json:"volume,omitempty" validate:"omitempty,gte=0"`
	DayHigh       *float64 `json:"dayHigh,omitempty" validate:"omitempty,gte=0"`
	DayLow        *float64 `json:"dayLow,omitempty" validate:"omitempty,gte=0"`
	PreviousClose *float64 `json:"previousClose,omitempty" validate:"omitempty,gte=0"`
}

// Float returns a pointer to v, for populating optional snapshot fields.
func Float(v float64) *float64 { return &v }

// Validate reports whether the snapshot can be evaluated.
func (s PriceSnapshot) Validate() error {
	if s.Ticker == "" {
		return ErrEmptyTicker
	}
	if s.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidSnapshot)
	}
	if s.MovingAverage < 0 {
		return fmt.Errorf("%w: movingAverage must not be negative", ErrInvalidSnapshot)
	}
	return nil
}

// MarketData is what the market-data collaborator returns. Real and
// simulated providers produce the same shape.
type MarketData struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	MovingAverage float64   `json:"movingAverage"`
	Volume        float64   `json:"volume"`
	DayHigh       float64   `json:"dayHigh"`
	DayLow        float64   `json:"dayLow"`
	PreviousClose float64   `json:"previousClose"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
}

// Snapshot converts market data into evaluator input. Zero high, low and
// previous close values are treated as not reported.
func (m MarketData) Snapshot() PriceSnapshot {
	s := PriceSnapshot{
		Ticker:        m.Ticker,
		Price:         m.Price,
		MovingAverage: m.MovingAverage,
		Volume:        Float(m.Volume),
	}
	if m.DayHigh > 0 {
		s.DayHigh = Float(m.DayHigh)
	}
	if m.DayLow > 0 {
		s.DayLow = Float(m.DayLow)
	}
	if m.PreviousClose > 0 {
		s.PreviousClose = Float(m.PreviousClose)
	}
	return s
}
