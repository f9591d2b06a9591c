package usecase

import (
	"context"
	"sync"
	"time"

	drepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/logger"
	"TradeCore/pkg/queue"
)

// Scheduler triggers a trade cycle for every configured ticker each
// interval. With a queue it enqueues CycleJob messages; without one it
// runs the universe in-process.
type Scheduler struct {
	cycle    *TradeCycle
	queue    queue.QueueService
	metrics  drepo.Metrics
	log      *logger.Logger
	tickers  []string
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. q may be nil.
func NewScheduler(cycle *TradeCycle, q queue.QueueService, metrics drepo.Metrics, log *logger.Logger, tickers []string, interval time.Duration) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		cycle:    cycle,
		queue:    q,
		metrics:  metrics,
		log:      log,
		tickers:  tickers,
		interval: interval,
	}
}

// Start runs the first tick immediately, then one per interval, until ctx
// ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	s.log.Info("scheduler started",
		logger.Strings("tickers", s.tickers),
		logger.Duration("interval_ms", s.interval),
		logger.Bool("queued", s.queue != nil))
}

// Tick triggers one round of cycles.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.queue == nil {
		for _, item := range s.cycle.RunUniverse(ctx, s.tickers) {
			if item.Error != "" {
				s.log.Warn("cycle failed",
					logger.String("ticker", item.Ticker),
					logger.String("error", item.Error))
			}
		}
		return
	}
	for _, t := range s.tickers {
		if err := s.queue.PublishMessage(ctx, CycleJobType, CyclePayload{Ticker: t}); err != nil {
			s.metrics.RecordError("schedule_enqueue")
			s.log.Error("enqueue cycle", logger.String("ticker", t), logger.Error(err))
		}
	}
}

// Stop cancels the loop and waits for an in-flight tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}
