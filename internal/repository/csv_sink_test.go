package repository

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/domain/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestCSVSinkAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	sink := NewCSVSink(path)

	res := sink.Append(models.TradeDecision{
		Ticker:         "AAPL",
		State:          models.StateWait,
		Action:         "HOLD",
		Confidence:     0.5,
		TriggeredRules: []string{"price > 50-DMA"},
		Timestamp:      ts("2023-12-01T10:00:00.000Z"),
	})
	assert.Equal(t, true, res.Success)
	assert.Equal(t, path, res.FilePath)
	assert.Equal(t, 1, res.RecordsWritten)
	assert.Empty(t, res.Error)

	assert.Equal(t,
		CSVHeader+"\n"+`AAPL,WAIT,HOLD,0.5,["price > 50-DMA"],"2023-12-01T10:00:00.000Z"`,
		readFile(t, path))

	res = sink.Append(models.TradeDecision{
		Ticker:         "GOOGL",
		State:          "BUY",
		Action:         "BUY",
		Confidence:     0.8,
		TriggeredRules: []string{"volume > average", "price > 20-DMA"},
		Timestamp:      ts("2023-12-01T10:01:00.000Z"),
	})
	require.True(t, res.Success)

	lines := strings.Split(readFile(t, path), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, CSVHeader, lines[0])
	assert.Equal(t, `GOOGL,BUY,BUY,0.8,["volume > average","price > 20-DMA"],"2023-12-01T10:01:00.000Z"`, lines[2])
}

func TestCSVSinkAppendBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	sink := NewCSVSink(path)

	res := sink.AppendBatch([]models.TradeDecision{
		{Ticker: "MSFT", State: "SELL", Action: "SELL", Confidence: 0.7, TriggeredRules: []string{"price < 50-DMA"}, Timestamp: ts("2023-12-01T10:02:00.000Z")},
		{Ticker: "TSLA", State: "WAIT", Action: "HOLD", Confidence: 0.4, TriggeredRules: nil, Timestamp: ts("2023-12-01T10:03:00.000Z")},
	})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.RecordsWritten)

	assert.Equal(t, strings.Join([]string{
		CSVHeader,
		`MSFT,SELL,SELL,0.7,["price < 50-DMA"],"2023-12-01T10:02:00.000Z"`,
		`TSLA,WAIT,HOLD,0.4,[],"2023-12-01T10:03:00.000Z"`,
	}, "\n"), readFile(t, path))
}

func TestCSVSinkEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	res := NewCSVSink(path).AppendBatch(nil)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.RecordsWritten)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCSVSinkInvalidPath(t *testing.T) {
	path := "/invalid/path/that/does/not/exist/test.csv"
	res := NewCSVSink(path).Append(models.TradeDecision{Ticker: "INVALID", State: models.StateWait, Action: models.ActionWait, Confidence: 0.5})
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.RecordsWritten)
	assert.Equal(t, path, res.FilePath)
	assert.NotEmpty(t, res.Error)
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	sink := NewCSVSink(path)

	in := []models.TradeDecision{
		{Ticker: "AAPL", State: models.StateWait, Action: models.ActionArmForBuy, Confidence: 0.92, TriggeredRules: []string{"price > 50-DMA + gap up"}, Timestamp: ts("2024-03-04T15:04:05.123Z")},
		{Ticker: "NVDA", State: models.StateArmed, Action: models.ActionDisarm, Confidence: 0.5, TriggeredRules: []string{}, Timestamp: ts("2024-03-04T15:04:06.000Z")},
		{Ticker: "AAPL", State: models.StateArmed, Action: models.ActionBuy, Confidence: 1, TriggeredRules: []string{`odd "quoted", rule`}, Timestamp: ts("2024-03-04T15:04:07.999Z")},
	}
	require.True(t, sink.Append(in[0]).Success)
	require.True(t, sink.AppendBatch(in[1:]).Success)

	out, err := ReadDecisions(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	recent, err := sink.Recent("aapl", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, models.ActionBuy, recent[0].Action)
}

func TestCSVSinkRecentMissingFile(t *testing.T) {
	got, err := NewCSVSink(filepath.Join(t.TempDir(), "none.csv")).Recent("", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVSinkConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.csv")
	sink := NewCSVSink(path)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Append(models.TradeDecision{Ticker: "AMZN", State: models.StateWait, Action: models.ActionWait, Confidence: 0.5, Timestamp: ts("2024-01-01T00:00:00Z")})
		}()
	}
	wg.Wait()

	out, err := ReadDecisions(path)
	require.NoError(t, err)
	assert.Len(t, out, 25)
	assert.Equal(t, 1, strings.Count(readFile(t, path), CSVHeader))
}

func TestParseCSVRowRejectsGarbage(t *testing.T) {
	_, err := ParseCSVRow("a,b")
	assert.Error(t, err)
	_, err = ParseCSVRow(`A,WAIT,WAIT,x,[],"2024-01-01T00:00:00.000Z"`)
	assert.Error(t, err)
}
