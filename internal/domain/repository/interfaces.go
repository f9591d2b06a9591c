package repository

import (
	"context"
	"time"

	"TradeCore/internal/domain/models"
)

// MarketDataProvider fetches the latest market data for a ticker.
type MarketDataProvider interface {
	GetMarketData(ctx context.Context, ticker string) (*models.MarketData, error)
}

// StateStore persists TradeStateData per session. Lock grants single-writer
// access to one session; the returned func releases it.
type StateStore interface {
	Load(ctx context.Context, session string) (models.TradeStateData, error)
	Save(ctx context.Context, session string, data models.TradeStateData) error
	Lock(ctx context.Context, session string) (unlock func(), err error)
}

// CSVOutputResult reports the outcome of a CSV append.
type CSVOutputResult struct {
	Success        bool   `json:"success"`
	FilePath       string `json:"filePath"`
	RecordsWritten int    `json:"recordsWritten"`
	Error          string `json:"error,omitempty"`
}

// DecisionSink is the append-only flat-file output of decisions.
type DecisionSink interface {
	Append(d models.TradeDecision) CSVOutputResult
	AppendBatch(ds []models.TradeDecision) CSVOutputResult
}

type Publisher interface {
	Publish(ctx context.Context, d *models.TradeDecision) error
	PublishBatch(ctx context.Context, ds []*models.TradeDecision) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, d *models.TradeDecision) error
	StoreBatch(ctx context.Context, ds []*models.TradeDecision) error
	Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeDecision, error)
	Health(ctx context.Context) error
	Close() error
}

// Broadcaster pushes decisions to live subscribers.
type Broadcaster interface {
	Broadcast(d *models.TradeDecision)
}

type Metrics interface {
	RecordDecision(d *models.TradeDecision)
	RecordSignal(signal models.Signal, confidence float64)
	RecordRuleTriggered(kind models.RuleKind)
	RecordTransition(t models.Transition)
	RecordDecisionSent(backend, ticker string)
	RecordError(kind string)
	RecordLastPrice(ticker string, price float64)
	RecordLatency(op string, seconds float64)
}
