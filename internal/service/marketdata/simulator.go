package marketdata

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/util"
)

// SourceSimulated marks data produced by Simulator.
const SourceSimulated = "simulated"

const defaultBasePrice = 100.0

// BasePrices anchor simulated prices per ticker.
var BasePrices = map[string]float64{
	"AAPL":  150,
	"GOOGL": 2800,
	"MSFT":  350,
	"TSLA":  250,
	"AMZN":  3200,
	"META":  200,
	"NVDA":  450,
}

// BasePrice returns the anchor price for ticker.
func BasePrice(ticker string) float64 {
	if p, ok := BasePrices[strings.ToUpper(ticker)]; ok {
		return p
	}
	return defaultBasePrice
}

// Simulator produces random market data around fixed base prices: price
// within ±1% of base, a moving average 2% above or below price and a
// volume between 100k and 1.1M.
type Simulator struct {
	mu  sync.Mutex
	rnd func() float64
	now func() time.Time
}

var _ domrepo.MarketDataProvider = (*Simulator)(nil)

type SimulatorOption func(*Simulator)

// WithRand replaces the uniform [0,1) source.
func WithRand(r *rand.Rand) SimulatorOption {
	return func(s *Simulator) { s.rnd = r.Float64 }
}

func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{rnd: rand.Float64, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) GetMarketData(ctx context.Context, ticker string) (*models.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, models.ErrEmptyTicker
	}
	base := BasePrice(ticker)

	s.mu.Lock()
	variation := (s.rnd() - 0.5) * base * 0.02
	up := s.rnd() > 0.5
	volume := float64(int(s.rnd()*1_000_000) + 100_000)
	highSpread := s.rnd() * 0.015
	lowSpread := s.rnd() * 0.015
	s.mu.Unlock()

	price := base + variation
	trend := 0.98
	if up {
		trend = 1.02
	}

	return &models.MarketData{
		Ticker:        ticker,
		Price:         util.Round2(price),
		MovingAverage: util.Round2(price * trend),
		Volume:        volume,
		DayHigh:       util.Round2(price * (1 + highSpread)),
		DayLow:        util.Round2(price * (1 - lowSpread)),
		PreviousClose: base,
		Timestamp:     s.now().UTC(),
		Source:        SourceSimulated,
	}, nil
}
