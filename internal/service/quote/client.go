package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/tidwall/gjson"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	svcmetrics "TradeCore/internal/service/metrics"
	"TradeCore/internal/service/ratelimit"
	"TradeCore/pkg/cache"
	xhttp "TradeCore/pkg/http"
	"TradeCore/pkg/util"
)

const (
	// SourceYahoo marks data fetched from the chart API.
	SourceYahoo = "yahoo"

	DefaultBaseURL      = "https://query1.finance.yahoo.com"
	DefaultMovingWindow = 50

	chartRange    = "3mo"
	chartInterval = "1d"
	limiterKey    = "yahoo"
)

// ErrUnknownTicker is returned when the chart API has no data for a ticker.
var ErrUnknownTicker = errors.New("unknown ticker")

// Client fetches daily charts from a Yahoo-style chart endpoint and turns
// them into MarketData.
type Client struct {
	http    *xhttp.Client
	baseURL string
	window  int
	limiter *ratelimit.Limiter
	cache   cache.Service
	ttl     time.Duration
	metrics *svcmetrics.MarketData
	now     func() time.Time
}

var _ domrepo.MarketDataProvider = (*Client)(nil)

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMovingWindow sets the number of daily closes averaged.
func WithMovingWindow(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.window = n
		}
	}
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithCache caches each ticker's data for ttl.
func WithCache(s cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = s
		c.ttl = ttl
	}
}

func WithMetrics(m *svcmetrics.MarketData) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(hc *xhttp.Client, opts ...Option) *Client {
	if hc == nil {
		hc = xhttp.NewClient()
	}
	c := &Client{
		http:    hc,
		baseURL: DefaultBaseURL,
		window:  DefaultMovingWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetMarketData(ctx context.Context, ticker string) (*models.MarketData, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, models.ErrEmptyTicker
	}
	if c.cache == nil || c.ttl <= 0 {
		return c.fetch(ctx, ticker)
	}

	loaded := false
	md, err := cache.GetOrLoad(ctx, c.cache, cache.Key("quote", ticker), c.ttl,
		func(ctx context.Context) (models.MarketData, error) {
			loaded = true
			md, err := c.fetch(ctx, ticker)
			if err != nil {
				return models.MarketData{}, err
			}
			return *md, nil
		})
	if err != nil {
		return nil, err
	}
	if !loaded && c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(SourceYahoo).Inc()
	}
	return &md, nil
}

func (c *Client) fetch(ctx context.Context, ticker string) (*models.MarketData, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, limiterKey); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	body, err := c.http.GetBytes(ctx, c.baseURL+"/v8/finance/chart/"+url.PathEscape(ticker), map[string][]string{
		"range":    {chartRange},
		"interval": {chartInterval},
	})
	if c.metrics != nil {
		c.metrics.Latency.WithLabelValues(SourceYahoo).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if xhttp.IsStatus(err, http.StatusNotFound) {
			c.countError("not_found")
			return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
		}
		c.countError("request")
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}

	md, err := ParseChart(body, c.window)
	if err != nil {
		c.countError("parse")
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}
	md.Ticker = ticker
	md.Timestamp = c.now().UTC()
	return md, nil
}

func (c *Client) countError(reason string) {
	if c.metrics != nil {
		c.metrics.Errors.WithLabelValues(SourceYahoo, reason).Inc()
	}
}

// ParseChart reads a chart response. The moving average is the SMA of the
// last window non-null daily closes, or of all closes when fewer exist.
// A missing previousClose falls back to the second-to-last close.
func ParseChart(body []byte, window int) (*models.MarketData, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid chart json")
	}
	root := gjson.ParseBytes(body)
	if desc := root.Get("chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicker, desc.String())
	}
	res := root.Get("chart.result.0")
	if !res.Exists() {
		return nil, fmt.Errorf("%w: empty chart result", ErrUnknownTicker)
	}

	meta := res.Get("meta")
	price := meta.Get("regularMarketPrice").Float()
	if price <= 0 {
		return nil, fmt.Errorf("chart has no regularMarketPrice")
	}

	closes := make([]float64, 0, 64)
	res.Get("indicators.quote.0.close").ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.Number && v.Float() > 0 {
			closes = append(closes, v.Float())
		}
		return true
	})

	md := &models.MarketData{
		Ticker:        meta.Get("symbol").String(),
		Price:         price,
		MovingAverage: movingAverage(closes, window),
		Volume:        meta.Get("regularMarketVolume").Float(),
		DayHigh:       meta.Get("regularMarketDayHigh").Float(),
		DayLow:        meta.Get("regularMarketDayLow").Float(),
		PreviousClose: meta.Get("previousClose").Float(),
		Source:        SourceYahoo,
	}
	if md.PreviousClose <= 0 && len(closes) >= 2 {
		md.PreviousClose = closes[len(closes)-2]
	}
	return md, nil
}

func movingAverage(closes []float64, window int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if window <= 0 || window > len(closes) {
		window = len(closes)
	}
	tail := closes[len(closes)-window:]
	sma := talib.Sma(tail, window)
	return util.Round2(sma[len(sma)-1])
}
