package rules

import (
	"fmt"
	"math"
	"strings"

	"TradeCore/internal/domain/models"
	domsvc "TradeCore/internal/domain/service"
)

// DefaultAverageVolume applies to tickers missing from the table.
const DefaultAverageVolume = 1_000_000

// AverageVolumes is the expected average daily volume per ticker.
var AverageVolumes = map[string]float64{
	"AAPL":  50_000_000,
	"GOOGL": 20_000_000,
	"MSFT":  25_000_000,
	"TSLA":  100_000_000,
	"AMZN":  60_000_000,
	"META":  30_000_000,
	"NVDA":  40_000_000,
}

const (
	highVolumeRatio     = 1.2
	lowVolumeRatio      = 0.5
	veryHighVolumeRatio = 2.0
)

// VolumeRule flags volume that departs from the ticker's average.
type VolumeRule struct {
	averages map[string]float64
}

var _ domsvc.RuleEvaluator = (*VolumeRule)(nil)

// NewVolumeRule uses averages, or AverageVolumes when nil.
func NewVolumeRule(averages map[string]float64) *VolumeRule {
	if averages == nil {
		averages = AverageVolumes
	}
	return &VolumeRule{averages: averages}
}

func (r *VolumeRule) Kind() models.RuleKind { return models.RuleVolume }

// AverageFor returns the expected volume for ticker. Never zero.
func (r *VolumeRule) AverageFor(ticker string) float64 {
	if avg, ok := r.averages[strings.ToUpper(ticker)]; ok && avg > 0 {
		return avg
	}
	return DefaultAverageVolume
}

func (r *VolumeRule) Evaluate(s models.PriceSnapshot) models.RuleResult {
	avg := r.AverageFor(s.Ticker)
	volume := optional(s.Volume, 0)
	ratio := volume / avg

	isHigh := volume > avg*highVolumeRatio
	isLow := volume < avg*lowVolumeRatio

	bullish := true
	if isLow {
		bullish = false
	} else if volume > avg*veryHighVolumeRatio {
		bullish = true
	}

	tag := "normal volume"
	switch {
	case isHigh:
		tag = "high volume"
	case isLow:
		tag = "low volume"
	}

	return models.RuleResult{
		Kind:       models.RuleVolume,
		IsBullish:  bullish,
		Triggered:  isHigh || isLow,
		Rule:       fmt.Sprintf("volume ratio: %.1f%% (%s)", ratio*100, tag),
		Confidence: math.Min(math.Abs(ratio-1)*100, 100),
	}
}
