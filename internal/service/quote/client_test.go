package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/domain/models"
	svcmetrics "TradeCore/internal/service/metrics"
	"TradeCore/internal/service/ratelimit"
	"TradeCore/pkg/cache"
	xhttp "TradeCore/pkg/http"
)

func chartJSON(meta string, closes []string) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{%s},"timestamp":[],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		meta, strings.Join(closes, ","))
}

func rampCloses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", i+1)
	}
	return out
}

func TestParseChart(t *testing.T) {
	// closes 1..60 with a null in the middle; the last 50 non-null closes are 11..60
	closes := append(rampCloses(30), "null")
	closes = append(closes, rampCloses(60)[30:]...)
	body := chartJSON(`"symbol":"AAPL","regularMarketPrice":187.5,"regularMarketDayHigh":189,"regularMarketDayLow":185.25,"regularMarketVolume":51234567,"previousClose":186`, closes)

	md, err := ParseChart([]byte(body), 50)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", md.Ticker)
	assert.Equal(t, 187.5, md.Price)
	assert.Equal(t, 35.5, md.MovingAverage)
	assert.Equal(t, 51234567.0, md.Volume)
	assert.Equal(t, 189.0, md.DayHigh)
	assert.Equal(t, 185.25, md.DayLow)
	assert.Equal(t, 186.0, md.PreviousClose)
	assert.Equal(t, SourceYahoo, md.Source)
}

func TestParseChartShortHistory(t *testing.T) {
	body := chartJSON(`"regularMarketPrice":10`, []string{"8", "10", "12"})
	md, err := ParseChart([]byte(body), 50)
	require.NoError(t, err)
	assert.Equal(t, 10.0, md.MovingAverage)
	assert.Equal(t, 10.0, md.PreviousClose, "second-to-last close")

	md, err = ParseChart([]byte(chartJSON(`"regularMarketPrice":10`, nil)), 50)
	require.NoError(t, err)
	assert.Zero(t, md.MovingAverage)
	assert.Zero(t, md.PreviousClose)
}

func TestParseChartErrors(t *testing.T) {
	_, err := ParseChart([]byte(`{`), 50)
	assert.Error(t, err)

	_, err = ParseChart([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`), 50)
	assert.ErrorIs(t, err, ErrUnknownTicker)

	_, err = ParseChart([]byte(chartJSON(`"symbol":"X"`, []string{"1"})), 50)
	assert.Error(t, err)
}

func newChartServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "3mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		switch r.URL.Path {
		case "/v8/finance/chart/MSFT":
			_, _ = w.Write([]byte(chartJSON(`"symbol":"MSFT","regularMarketPrice":410,"regularMarketDayHigh":412,"regularMarketDayLow":405,"regularMarketVolume":20000000,"previousClose":400`, []string{"390", "395", "400"})))
		case "/v8/finance/chart/BROKEN":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}
	}))
}

func TestClientFetchesAndCaches(t *testing.T) {
	var hits int32
	srv := newChartServer(t, &hits)
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := svcmetrics.NewMarketData(reg)
	mem := cache.NewMemoryCache()
	defer mem.Close()

	fixed := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)
	c := NewClient(xhttp.NewClient(xhttp.WithHTTPClient(srv.Client())),
		WithBaseURL(srv.URL+"/"),
		WithLimiter(ratelimit.New(100, 10)),
		WithCache(mem, time.Minute),
		WithMetrics(m),
	)
	c.now = func() time.Time { return fixed }

	md, err := c.GetMarketData(context.Background(), "msft")
	require.NoError(t, err)
	assert.Equal(t, &models.MarketData{
		Ticker:        "MSFT",
		Price:         410,
		MovingAverage: 395,
		Volume:        20000000,
		DayHigh:       412,
		DayLow:        405,
		PreviousClose: 400,
		Timestamp:     fixed,
		Source:        SourceYahoo,
	}, md)

	again, err := c.GetMarketData(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, md, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues(SourceYahoo)))
}

func TestClientErrors(t *testing.T) {
	var hits int32
	srv := newChartServer(t, &hits)
	defer srv.Close()

	m := svcmetrics.NewMarketData(prometheus.NewRegistry())
	c := NewClient(xhttp.NewClient(xhttp.WithHTTPClient(srv.Client())), WithBaseURL(srv.URL), WithMetrics(m))

	_, err := c.GetMarketData(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownTicker)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues(SourceYahoo, "not_found")))

	_, err = c.GetMarketData(context.Background(), "BROKEN")
	require.Error(t, err)
	assert.True(t, xhttp.IsStatus(err, http.StatusBadGateway))

	_, err = c.GetMarketData(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrEmptyTicker)
}
