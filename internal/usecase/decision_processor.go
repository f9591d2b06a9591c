package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	drepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/logger"
)

// Backends a processor can deliver to besides the CSV file.
const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// DecisionHandler receives every decision a trade cycle produces.
type DecisionHandler interface {
	Handle(ctx context.Context, d *models.TradeDecision) error
}

// DecisionProcessor writes decisions to the CSV sink, broadcasts them to
// live subscribers and routes them to the configured backend.
type DecisionProcessor struct {
	sink        drepo.DecisionSink
	pub         drepo.Publisher
	store       drepo.Storage
	broadcaster drepo.Broadcaster
	metrics     drepo.Metrics
	log         *logger.Logger
	backend     string
}

var _ DecisionHandler = (*DecisionProcessor)(nil)

// NewDecisionProcessor creates a new DecisionProcessor. pub, store and
// broadcaster may be nil when unused.
func NewDecisionProcessor(
	sink drepo.DecisionSink,
	pub drepo.Publisher,
	store drepo.Storage,
	broadcaster drepo.Broadcaster,
	metrics drepo.Metrics,
	log *logger.Logger,
	backend string,
) *DecisionProcessor {
	if backend == "" {
		backend = BackendNone
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DecisionProcessor{
		sink:        sink,
		pub:         pub,
		store:       store,
		broadcaster: broadcaster,
		metrics:     metrics,
		log:         log,
		backend:     backend,
	}
}

func (p *DecisionProcessor) Backend() string { return p.backend }

func (p *DecisionProcessor) Handle(ctx context.Context, d *models.TradeDecision) error {
	return p.Process(ctx, d)
}

// Process appends a single decision to the sink, then delivers it.
func (p *DecisionProcessor) Process(ctx context.Context, d *models.TradeDecision) error {
	if d == nil {
		return fmt.Errorf("decision is nil")
	}
	return p.ProcessBatch(ctx, []*models.TradeDecision{d})
}

// ProcessBatch writes the batch to the CSV file in one operation. Errors
// wrap ErrDecisionSink when nothing was written and ErrDecisionDelivery
// when only the backend failed.
func (p *DecisionProcessor) ProcessBatch(ctx context.Context, ds []*models.TradeDecision) error {
	ds = compact(ds)
	if len(ds) == 0 {
		return nil
	}

	start := time.Now()
	rows := make([]models.TradeDecision, len(ds))
	for i, d := range ds {
		rows[i] = *d
	}
	res := p.sink.AppendBatch(rows)
	if !res.Success {
		p.metrics.RecordError("csv_write")
		p.log.Error("csv append failed",
			logger.String("path", res.FilePath),
			logger.String("error", res.Error))
		return fmt.Errorf("%w: %s", models.ErrDecisionSink, res.Error)
	}
	for _, d := range ds {
		p.metrics.RecordDecisionSent("csv", d.Ticker)
	}

	if p.broadcaster != nil {
		for _, d := range ds {
			p.broadcaster.Broadcast(d)
		}
	}

	if err := p.DeliverBatch(ctx, ds); err != nil {
		return err
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Deliver routes one decision to the backend only.
func (p *DecisionProcessor) Deliver(ctx context.Context, d *models.TradeDecision) error {
	return p.DeliverBatch(ctx, []*models.TradeDecision{d})
}

// DeliverBatch routes decisions to the backend only; it is what a retry
// calls for decisions whose CSV row already exists.
func (p *DecisionProcessor) DeliverBatch(ctx context.Context, ds []*models.TradeDecision) error {
	ds = compact(ds)
	if len(ds) == 0 {
		return nil
	}

	var err error
	switch p.backend {
	case BackendNone:
		return nil
	case BackendKafka:
		if p.pub == nil {
			err = fmt.Errorf("kafka publisher not configured")
		} else {
			err = p.pub.PublishBatch(ctx, ds)
		}
	case BackendClickHouse:
		if p.store == nil {
			err = fmt.Errorf("clickhouse storage not configured")
		} else {
			err = p.store.StoreBatch(ctx, ds)
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("deliver_" + p.backend)
		return fmt.Errorf("%w: %w", models.ErrDecisionDelivery, err)
	}
	for _, d := range ds {
		p.metrics.RecordDecisionSent(p.backend, d.Ticker)
	}
	return nil
}

// Close closes underlying resources if available.
func (p *DecisionProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

func compact(ds []*models.TradeDecision) []*models.TradeDecision {
	out := ds[:0:0]
	for _, d := range ds {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}
