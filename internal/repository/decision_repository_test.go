package repository

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/domain/models"
	pkgkafka "TradeCore/pkg/kafka"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaDecisionPublisher(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaDecisionPublisher(pkgkafka.NewProducerWithWriter(w, "gzip", nil), "trade-decisions")

	d := &models.TradeDecision{
		Ticker:         "AAPL",
		State:          models.StateArmed,
		Action:         models.ActionBuy,
		Confidence:     0.92,
		TriggeredRules: []string{"price > 50-DMA"},
		Timestamp:      time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC),
	}
	require.NoError(t, pub.PublishBatch(context.Background(), []*models.TradeDecision{d, nil}))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "trade-decisions", msg.Topic)
	assert.Equal(t, "AAPL", string(msg.Key))

	var got models.TradeDecision
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, *d, got)
}

func TestDecisionSchema(t *testing.T) {
	stmts := DecisionSchema("tradecore")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS tradecore", stmts[0])
	assert.Contains(t, stmts[1], "tradecore.trade_decisions")
	assert.Contains(t, stmts[1], "triggered_rules Array(String)")
	assert.Contains(t, stmts[1], "DateTime64(3")
}

func TestClickHouseDecisionQuerySQL(t *testing.T) {
	s := NewClickHouseDecisionStorage(nil, "tradecore")
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	q, args := s.querySQL("aapl", from, to, 5)
	assert.True(t, strings.HasPrefix(q, "SELECT ts, ticker, state, action, confidence, triggered_rules FROM tradecore.trade_decisions"))
	assert.Contains(t, q, "ticker = ?")
	assert.Equal(t, []interface{}{from, to, "AAPL", 5}, args)

	q, args = s.querySQL("", from, to, 0)
	assert.NotContains(t, q, "ticker = ?")
	assert.Equal(t, 100, args[len(args)-1])

	q, args = s.querySQL("", time.Time{}, time.Time{}, 10)
	assert.NotContains(t, q, "ts >= ?")
	assert.NotContains(t, q, "ts <= ?")
	assert.Equal(t, []interface{}{10}, args)

	assert.Equal(t, "INSERT INTO tradecore.trade_decisions (ts, ticker, state, action, confidence, triggered_rules)", s.insertSQL())
}
