package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/domain/models"
	"TradeCore/pkg/metrics"
)

type fakeProc struct {
	mu          sync.Mutex
	processErrs []error
	deliverErrs []error
	processed   [][]string
	delivered   [][]string
}

func tickers(ds []*models.TradeDecision) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Ticker
	}
	return out
}

func (f *fakeProc) ProcessBatch(_ context.Context, ds []*models.TradeDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, tickers(ds))
	if len(f.processErrs) > 0 {
		err := f.processErrs[0]
		f.processErrs = f.processErrs[1:]
		return err
	}
	return nil
}

func (f *fakeProc) DeliverBatch(_ context.Context, ds []*models.TradeDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, tickers(ds))
	if len(f.deliverErrs) > 0 {
		err := f.deliverErrs[0]
		f.deliverErrs = f.deliverErrs[1:]
		return err
	}
	return nil
}

func (f *fakeProc) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processed), len(f.delivered)
}

func decision(ticker string) *models.TradeDecision {
	return &models.TradeDecision{Ticker: ticker, State: models.StateWait, Action: models.ActionWait, Confidence: 0.5, TriggeredRules: []string{}}
}

func newRecorder() *metrics.Recorder {
	return metrics.NewWithRegisterer(prometheus.NewRegistry())
}

func TestPipelineFlushesFullBatch(t *testing.T) {
	proc := &fakeProc{}
	p := NewDecisionPipeline(proc, newRecorder(), WithBatchSize(2), WithFlushInterval(time.Hour))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Handle(context.Background(), decision("AAPL")))
	require.NoError(t, p.Handle(context.Background(), decision("MSFT")))

	require.Eventually(t, func() bool { n, _ := proc.counts(); return n == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"AAPL", "MSFT"}, proc.processed[0])
}

func TestPipelineFlushesOnInterval(t *testing.T) {
	proc := &fakeProc{}
	p := NewDecisionPipeline(proc, newRecorder(), WithBatchSize(10), WithFlushInterval(20*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Handle(context.Background(), decision("AAPL")))
	require.Eventually(t, func() bool { n, _ := proc.counts(); return n == 1 }, time.Second, 5*time.Millisecond)
}

func TestPipelineStopDrains(t *testing.T) {
	proc := &fakeProc{}
	p := NewDecisionPipeline(proc, newRecorder(), WithBatchSize(10), WithFlushInterval(time.Hour))
	p.Start(context.Background())

	for _, tk := range []string{"AAPL", "MSFT", "TSLA"} {
		require.NoError(t, p.Handle(context.Background(), decision(tk)))
	}
	p.Stop()

	require.Len(t, proc.processed, 1)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, proc.processed[0])
	assert.ErrorIs(t, p.Handle(context.Background(), decision("NVDA")), ErrPipelineStopped)
	p.Stop()
}

func TestPipelineRetriesDeliveryOnly(t *testing.T) {
	proc := &fakeProc{processErrs: []error{fmt.Errorf("%w: broker down", models.ErrDecisionDelivery)}}
	p := NewDecisionPipeline(proc, newRecorder(), WithBatchSize(1), WithFlushInterval(10*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Handle(context.Background(), decision("AAPL")))
	require.Eventually(t, func() bool { _, n := proc.counts(); return n == 1 }, 2*time.Second, 5*time.Millisecond)

	processed, delivered := proc.counts()
	assert.Equal(t, 1, processed, "the CSV row must not be written twice")
	assert.Equal(t, 1, delivered)
}

func TestPipelineRetriesSinkFailure(t *testing.T) {
	proc := &fakeProc{processErrs: []error{fmt.Errorf("%w: disk full", models.ErrDecisionSink)}}
	p := NewDecisionPipeline(proc, newRecorder(), WithBatchSize(1), WithFlushInterval(10*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Handle(context.Background(), decision("AAPL")))
	require.Eventually(t, func() bool { n, _ := proc.counts(); return n == 2 }, 2*time.Second, 5*time.Millisecond)
	_, delivered := proc.counts()
	assert.Zero(t, delivered)
}

func TestPipelineRejects(t *testing.T) {
	p := NewDecisionPipeline(&fakeProc{}, newRecorder(), WithBufferSize(1))

	assert.ErrorIs(t, p.Handle(context.Background(), nil), models.ErrEmptyTicker)
	require.NoError(t, p.Handle(context.Background(), decision("AAPL")))
	err := p.Handle(context.Background(), decision("MSFT"))
	assert.True(t, errors.Is(err, ErrPipelineFull))
	assert.Equal(t, 1, p.Len())
}
