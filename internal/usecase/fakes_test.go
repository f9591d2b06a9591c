package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"TradeCore/internal/domain/models"
	"TradeCore/internal/repository"
	"TradeCore/internal/services/rules"
	"TradeCore/pkg/metrics"
)

var errBackendDown = errors.New("backend down")

// bullishMarket returns data on which all four rules trigger bullish.
func bullishMarket(ticker string) *models.MarketData {
	return &models.MarketData{
		Ticker:        ticker,
		Price:         150,
		MovingAverage: 140,
		Volume:        75_000_000,
		DayHigh:       151,
		DayLow:        140,
		PreviousClose: 145,
		Source:        "test",
	}
}

type fakeMarket struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeMarket) GetMarketData(_ context.Context, ticker string) (*models.MarketData, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[strings.ToUpper(ticker)] {
		return nil, errors.New("quote endpoint unavailable")
	}
	return bullishMarket(ticker), nil
}

func (f *fakeMarket) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu      sync.Mutex
	fail    bool
	batches [][]*models.TradeDecision
	closed  bool
}

func (f *fakePublisher) Publish(ctx context.Context, d *models.TradeDecision) error {
	return f.PublishBatch(ctx, []*models.TradeDecision{d})
}

func (f *fakePublisher) PublishBatch(_ context.Context, ds []*models.TradeDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errBackendDown
	}
	f.batches = append(f.batches, ds)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeStorage struct {
	mu     sync.Mutex
	fail   bool
	stored []*models.TradeDecision
}

func (f *fakeStorage) Init(context.Context) error { return nil }

func (f *fakeStorage) Store(ctx context.Context, d *models.TradeDecision) error {
	return f.StoreBatch(ctx, []*models.TradeDecision{d})
}

func (f *fakeStorage) StoreBatch(_ context.Context, ds []*models.TradeDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errBackendDown
	}
	f.stored = append(f.stored, ds...)
	return nil
}

func (f *fakeStorage) Query(context.Context, string, time.Time, time.Time, int) ([]*models.TradeDecision, error) {
	return f.stored, nil
}

func (f *fakeStorage) Health(context.Context) error { return nil }
func (f *fakeStorage) Close() error                 { return nil }

type fakeBroadcaster struct {
	mu   sync.Mutex
	seen []*models.TradeDecision
}

func (f *fakeBroadcaster) Broadcast(d *models.TradeDecision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, d)
}

type recordingHandler struct {
	mu   sync.Mutex
	fail bool
	got  []models.TradeDecision
}

func (h *recordingHandler) Handle(_ context.Context, d *models.TradeDecision) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errBackendDown
	}
	h.got = append(h.got, *d)
	return nil
}

func newTestMetrics() *metrics.Recorder {
	return metrics.NewWithRegisterer(prometheus.NewRegistry())
}

func newTestCycle(market *fakeMarket, handler DecisionHandler, opts ...CycleOption) *TradeCycle {
	return NewTradeCycle(
		market,
		NewSignalAggregator(rules.Default(), DefaultAggregatorConfig()),
		NewStateMachine(repository.NewMemoryStateStore(2*time.Second), nil),
		NewDecisionFactory(),
		handler,
		newTestMetrics(),
		nil,
		opts...,
	)
}
