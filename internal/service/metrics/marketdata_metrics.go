package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MarketData holds quote-fetch collectors, labelled by provider.
type MarketData struct {
	Latency   *prometheus.HistogramVec
	Errors    *prometheus.CounterVec
	CacheHits *prometheus.CounterVec
}

// NewMarketData registers the collectors on reg; nil skips registration.
func NewMarketData(reg prometheus.Registerer) *MarketData {
	f := promauto.With(reg)
	return &MarketData{
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tradecore",
				Subsystem: "marketdata",
				Name:      "latency_seconds",
				Help:      "Latency of upstream quote requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tradecore",
				Subsystem: "marketdata",
				Name:      "errors_total",
				Help:      "Failed quote requests by reason",
			},
			[]string{"provider", "reason"},
		),
		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tradecore",
				Subsystem: "marketdata",
				Name:      "cache_hits_total",
				Help:      "Quotes served without an upstream request",
			},
			[]string{"provider"},
		),
	}
}
