package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu   sync.Mutex
	fail bool
	msgs []CyclePayload
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("redis unavailable")
	}
	if msgType == CycleJobType {
		q.msgs = append(q.msgs, payload.(CyclePayload))
	}
	return nil
}

func TestSchedulerTickEnqueues(t *testing.T) {
	q := &fakeQueue{}
	s := NewScheduler(newTestCycle(&fakeMarket{}, nil), q, newTestMetrics(), nil, []string{"AAPL", "MSFT"}, time.Minute)

	s.Tick(context.Background())
	assert.Equal(t, []CyclePayload{{Ticker: "AAPL"}, {Ticker: "MSFT"}}, q.msgs)

	q.fail = true
	assert.NotPanics(t, func() { s.Tick(context.Background()) })
}

func TestSchedulerRunsInProcess(t *testing.T) {
	market := &fakeMarket{}
	s := NewScheduler(newTestCycle(market, nil), nil, newTestMetrics(), nil, []string{"AAPL", "TSLA"}, 20*time.Millisecond)

	s.Start(context.Background())
	s.Start(context.Background())
	require.Eventually(t, func() bool { return market.Calls() >= 4 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := market.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, market.Calls())
	s.Stop()
}
