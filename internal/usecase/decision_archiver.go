package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	pkgkafka "TradeCore/pkg/kafka"
)

// DecisionArchiver consumes published decisions and writes them to storage.
type DecisionArchiver struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

var _ pkgkafka.MessageHandler = (*DecisionArchiver)(nil)

func NewDecisionArchiver(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *DecisionArchiver {
	return &DecisionArchiver{topic: topic, storage: storage, metrics: metrics}
}

func (h *DecisionArchiver) Topic() string { return h.topic }

// Handle expects the JSON written by the decision publisher.
func (h *DecisionArchiver) Handle(ctx context.Context, b []byte) error {
	var d models.TradeDecision
	if err := json.Unmarshal(b, &d); err != nil {
		h.metrics.RecordError("archive_unmarshal")
		return fmt.Errorf("decode decision: %w", err)
	}
	if d.Ticker == "" {
		h.metrics.RecordError("archive_invalid")
		return models.ErrEmptyTicker
	}
	if !d.Timestamp.IsZero() {
		h.metrics.RecordLatency("archive_e2e", time.Since(d.Timestamp).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &d)
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("archive_store")
		return fmt.Errorf("store decision: %w", err)
	}
	h.metrics.RecordDecisionSent(BackendClickHouse, d.Ticker)
	return nil
}
