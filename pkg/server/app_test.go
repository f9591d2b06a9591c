package server

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/handler/ws"
	"TradeCore/internal/middleware"
	"TradeCore/internal/repository"
	"TradeCore/internal/service/marketdata"
	"TradeCore/internal/services/rules"
	"TradeCore/internal/usecase"
	"TradeCore/pkg/config"
	"TradeCore/pkg/metrics"
)

type orderCloser struct {
	name  string
	mu    *sync.Mutex
	order *[]string
}

func (c orderCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.order = append(*c.order, c.name)
	return nil
}

func TestAppRunsScheduledCyclesThroughPipeline(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "decisions.csv")
	sink := repository.NewCSVSink(path)
	rec := metrics.NewWithRegisterer(prometheus.NewRegistry())
	hub := ws.NewHub(nil)
	proc := usecase.NewDecisionProcessor(sink, nil, nil, hub, rec, nil, usecase.BackendNone)
	pipe := middleware.NewDecisionPipeline(proc, rec,
		middleware.WithBatchSize(2),
		middleware.WithFlushInterval(10*time.Millisecond),
	)
	cycle := usecase.NewTradeCycle(
		marketdata.NewSimulator(),
		usecase.NewSignalAggregator(rules.Default(), usecase.DefaultAggregatorConfig()),
		usecase.NewStateMachine(repository.NewMemoryStateStore(time.Second), nil),
		usecase.NewDecisionFactory(),
		pipe,
		rec,
		nil,
	)
	sched := usecase.NewScheduler(cycle, nil, rec, nil, []string{"AAPL", "MSFT"}, time.Hour)

	var (
		mu    sync.Mutex
		order []string
	)
	app := New(cfg, nil, nil, sched, proc, hub,
		WithPipeline(pipe),
		WithCloser("first", orderCloser{name: "first", mu: &mu, order: &order}),
		WithCloser("second", orderCloser{name: "second", mu: &mu, order: &order}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))

	require.Eventually(t, func() bool {
		rows, err := sink.Recent("", 0)
		return err == nil && len(rows) == 2
	}, 2*time.Second, 10*time.Millisecond)

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	app.Shutdown(shutdownCtx)

	assert.Equal(t, []string{"second", "first"}, order)
	rows, err := repository.ReadDecisions(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
