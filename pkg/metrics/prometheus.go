package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions     *prometheus.CounterVec
	signals       *prometheus.CounterVec
	ruleTriggers  *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	confidence    prometheus.Histogram
	decisionsSent *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

var _ domrepo.Metrics = (*Recorder)(nil)

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg. A nil reg leaves the
// collectors unregistered.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_decisions_total",
				Help: "Total number of trade decisions produced",
			},
			[]string{"ticker", "action"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_signals_total",
				Help: "Aggregated signals by verdict",
			},
			[]string{"signal"},
		),
		ruleTriggers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_rule_triggers_total",
				Help: "Number of times each rule triggered",
			},
			[]string{"rule"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_state_transitions_total",
				Help: "State machine transitions",
			},
			[]string{"from", "to"},
		),
		confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradecore_decision_confidence",
				Help:    "Confidence of emitted decisions",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		decisionsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_decisions_sent_total",
				Help: "Total number of decisions delivered to an output",
			},
			[]string{"backend", "ticker"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradecore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradecore_last_price",
				Help: "Last observed price for a ticker",
			},
			[]string{"ticker"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradecore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordDecision(d *models.TradeDecision) {
	if d == nil {
		return
	}
	r.decisions.WithLabelValues(d.Ticker, string(d.Action)).Inc()
	r.confidence.Observe(d.Confidence)
}

func (r *Recorder) RecordSignal(signal models.Signal, _ float64) {
	r.signals.WithLabelValues(string(signal)).Inc()
}

func (r *Recorder) RecordRuleTriggered(kind models.RuleKind) {
	r.ruleTriggers.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) RecordTransition(t models.Transition) {
	r.transitions.WithLabelValues(string(t.From), string(t.To)).Inc()
}

// RecordDecisionSent records a decision delivered to backend.
func (r *Recorder) RecordDecisionSent(backend, ticker string) {
	r.decisionsSent.WithLabelValues(backend, ticker).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
