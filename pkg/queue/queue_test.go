package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cyclePayload struct {
	Ticker string `json:"ticker"`
}

func TestParsePayload(t *testing.T) {
	want := &cyclePayload{Ticker: "AAPL"}

	got, err := ParsePayload[cyclePayload](json.RawMessage(`{"ticker":"AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParsePayload[cyclePayload](map[string]interface{}{"ticker": "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParsePayload[cyclePayload](cyclePayload{Ticker: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParsePayload[cyclePayload](42)
	assert.Error(t, err)
}

func TestNewRedisQueueDefaults(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil, ModeProducerConsumer)
	assert.Equal(t, "trading-queue:messages", q.queueKey())
	assert.Equal(t, "trading-queue:retry", q.retryKey())
	assert.Equal(t, "trading-queue:dlq", q.deadLetterKey())
	assert.Equal(t, 1, q.config.Workers)
	assert.Equal(t, 10*time.Second, q.config.RetryDelay)
}

func TestNewMessage(t *testing.T) {
	q := NewRedisQueue(nil, &QueueConfig{Name: "q"}, nil, ModeProducerOnly)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	data, err := q.newMessage("trade.cycle", cyclePayload{Ticker: "MSFT"})
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Len(t, msg.ID, 36)
	assert.Equal(t, "trade.cycle", msg.Type)
	assert.Equal(t, fixed, msg.Timestamp)
	assert.JSONEq(t, `{"ticker":"MSFT"}`, string(msg.Payload))
}

func TestProcessDisposition(t *testing.T) {
	q := NewRedisQueue(nil, &QueueConfig{RetryLimit: 2}, nil, ModeConsumerOnly)
	fail := errors.New("upstream down")
	var seen *cyclePayload
	q.RegisterJob(JobFunc{MsgType: "ok", Fn: func(_ context.Context, p interface{}) error {
		var err error
		seen, err = ParsePayload[cyclePayload](p)
		return err
	}})
	q.RegisterJob(JobFunc{MsgType: "fail", Fn: func(context.Context, interface{}) error { return fail }})
	q.RegisterJob(JobFunc{MsgType: "cancel", Fn: func(context.Context, interface{}) error { return context.Canceled }})

	d, _ := q.process(Message{ID: "1", Type: "ok", Payload: json.RawMessage(`{"ticker":"AAPL"}`)})
	assert.Equal(t, dispositionDone, d)
	require.NotNil(t, seen)
	assert.Equal(t, "AAPL", seen.Ticker)

	d, next := q.process(Message{ID: "2", Type: "fail"})
	assert.Equal(t, dispositionRetry, d)
	assert.Equal(t, 1, next.Attempts)
	assert.Equal(t, "upstream down", next.LastError)

	d, next = q.process(next)
	assert.Equal(t, dispositionRetry, d)
	assert.Equal(t, 2, next.Attempts)

	d, _ = q.process(next)
	assert.Equal(t, dispositionDead, d)

	d, _ = q.process(Message{ID: "3", Type: "unknown"})
	assert.Equal(t, dispositionDead, d)

	d, _ = q.process(Message{ID: "4", Type: "cancel"})
	assert.Equal(t, dispositionDropped, d)
}

func TestRegisterJobIgnoredForProducer(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil, ModeProducerOnly)
	q.RegisterJob(JobFunc{MsgType: "x", Fn: func(context.Context, interface{}) error { return nil }})
	assert.Empty(t, q.jobs)
}

func TestEnqueueRequiresRunning(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil, ModeProducerOnly)
	err := q.Enqueue(context.Background(), "trade.cycle", cyclePayload{Ticker: "AAPL"})
	assert.EqualError(t, err, "queue not running")
}
