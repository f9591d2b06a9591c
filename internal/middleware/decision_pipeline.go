package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/logger"
)

var (
	ErrPipelineFull    = errors.New("decision pipeline buffer full")
	ErrPipelineStopped = errors.New("decision pipeline stopped")
)

const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// Proc is the processor interface the pipeline needs. DeliverBatch must
// skip the CSV sink; it is used for decisions already written.
type Proc interface {
	ProcessBatch(ctx context.Context, ds []*models.TradeDecision) error
	DeliverBatch(ctx context.Context, ds []*models.TradeDecision) error
}

type pending struct {
	d       *models.TradeDecision
	written bool
}

// DecisionPipeline buffers decisions and flushes them to the processor in
// batches. Failed batches are retried with exponential backoff; decisions
// whose CSV row was written are only re-delivered.
type DecisionPipeline struct {
	proc          Proc
	metrics       domrepo.Metrics
	log           *logger.Logger
	batchSize     int
	flushInterval time.Duration
	bufCh         chan pending
	stopCh        chan struct{}
	doneCh        chan struct{}
	mu            sync.Mutex
	started       bool
	stopped       bool
	backoff       time.Duration
}

type PipelineOption func(*DecisionPipeline)

// WithBatchSize sets the number of decisions flushed at once.
func WithBatchSize(n int) PipelineOption {
	return func(p *DecisionPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBufferSize sets the number of decisions held while downstream is slow.
func WithBufferSize(n int) PipelineOption {
	return func(p *DecisionPipeline) {
		if n > 0 {
			p.bufCh = make(chan pending, n)
		}
	}
}

// WithFlushInterval sets the longest time a partial batch waits.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *DecisionPipeline) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func WithLogger(l *logger.Logger) PipelineOption {
	return func(p *DecisionPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewDecisionPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *DecisionPipeline {
	p := &DecisionPipeline{
		proc:          proc,
		metrics:       metrics,
		log:           logger.Nop(),
		batchSize:     50,
		flushInterval: 2 * time.Second,
		bufCh:         make(chan pending, 1000),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		backoff:       minBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the background flusher.
func (p *DecisionPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop flushes what is buffered once and waits for the flusher to exit.
func (p *DecisionPipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if started {
		<-p.doneCh
	}
}

// Handle enqueues a decision without blocking.
func (p *DecisionPipeline) Handle(_ context.Context, d *models.TradeDecision) error {
	if d == nil || d.Ticker == "" {
		p.metrics.RecordError("pipeline_validate")
		return models.ErrEmptyTicker
	}
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrPipelineStopped
	}

	select {
	case p.bufCh <- pending{d: d}:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		return nil
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return ErrPipelineFull
	}
}

// Len reports the buffered decision count.
func (p *DecisionPipeline) Len() int { return len(p.bufCh) }

func (p *DecisionPipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	batch := make([]pending, 0, p.batchSize)
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx, batch)
			return
		case <-ctx.Done():
			p.drain(context.Background(), batch)
			return
		case item := <-p.bufCh:
			batch = append(batch, item)
			if len(batch) >= p.batchSize {
				p.flush(ctx, batch, true)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(ctx, batch, true)
				batch = batch[:0]
			}
		}
	}
}

// drain flushes the pending batch and the buffer once, without retries.
func (p *DecisionPipeline) drain(ctx context.Context, batch []pending) {
	for {
		select {
		case item := <-p.bufCh:
			batch = append(batch, item)
		default:
			if len(batch) > 0 {
				p.flush(ctx, batch, false)
			}
			return
		}
	}
}

func (p *DecisionPipeline) flush(ctx context.Context, batch []pending, retry bool) {
	var fresh, written []*models.TradeDecision
	for _, item := range batch {
		if item.written {
			written = append(written, item.d)
		} else {
			fresh = append(fresh, item.d)
		}
	}

	var failed []pending
	if len(fresh) > 0 {
		err := p.proc.ProcessBatch(ctx, fresh)
		if err != nil {
			wrote := errors.Is(err, models.ErrDecisionDelivery)
			for _, d := range fresh {
				failed = append(failed, pending{d: d, written: wrote})
			}
			p.log.Warn("decision batch failed",
				logger.Int("size", len(fresh)),
				logger.Bool("written", wrote),
				logger.Error(err))
		}
	}
	if len(written) > 0 {
		if err := p.proc.DeliverBatch(ctx, written); err != nil {
			for _, d := range written {
				failed = append(failed, pending{d: d, written: true})
			}
			p.log.Warn("decision redelivery failed", logger.Int("size", len(written)), logger.Error(err))
		}
	}

	if len(failed) == 0 {
		p.backoff = minBackoff
		return
	}
	p.metrics.RecordError("pipeline_flush")
	if !retry {
		p.metrics.RecordError("pipeline_drop_on_stop")
		return
	}

	if p.backoff < maxBackoff {
		p.backoff *= 2
	}
	select {
	case <-time.After(p.backoff):
	case <-p.stopCh:
	case <-ctx.Done():
	}

	// requeue if space; drop otherwise
	for _, item := range failed {
		select {
		case p.bufCh <- item:
		default:
			p.metrics.RecordError("pipeline_buffer_drop")
		}
	}
}
