package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	pkgkafka "TradeCore/pkg/kafka"
)

// DecisionsTable is the ClickHouse table holding archived decisions.
const DecisionsTable = "trade_decisions"

// DecisionSchema returns the DDL for the decisions table in database.
func DecisionSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	ts DateTime64(3, 'UTC'),
	ticker LowCardinality(String),
	state LowCardinality(String),
	action LowCardinality(String),
	confidence Float64,
	triggered_rules Array(String)
) ENGINE = MergeTree
ORDER BY (ticker, ts)`, database, DecisionsTable),
	}
}

// ClickHouseDecisionStorage implements Storage on ClickHouse.
type ClickHouseDecisionStorage struct {
	db       *sql.DB
	database string
	table    string
}

var _ domrepo.Storage = (*ClickHouseDecisionStorage)(nil)

func NewClickHouseDecisionStorage(db *sql.DB, database string) *ClickHouseDecisionStorage {
	return &ClickHouseDecisionStorage{
		db:       db,
		database: database,
		table:    database + "." + DecisionsTable,
	}
}

func (s *ClickHouseDecisionStorage) Init(ctx context.Context) error {
	for _, stmt := range DecisionSchema(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init decisions schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseDecisionStorage) Store(ctx context.Context, d *models.TradeDecision) error {
	return s.StoreBatch(ctx, []*models.TradeDecision{d})
}

// StoreBatch inserts through one prepared statement, which the driver
// sends as a single block.
func (s *ClickHouseDecisionStorage) StoreBatch(ctx context.Context, ds []*models.TradeDecision) error {
	rows := make([]*models.TradeDecision, 0, len(ds))
	for _, d := range ds {
		if d != nil && d.Ticker != "" {
			rows = append(rows, d)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, d := range rows {
		rules := d.TriggeredRules
		if rules == nil {
			rules = []string{}
		}
		if _, err := stmt.ExecContext(ctx, d.Timestamp.UTC(), d.Ticker, string(d.State), string(d.Action), d.Confidence, rules); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append %s: %w", d.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Query returns decisions in [from, to], newest first. A zero bound is
// open and an empty ticker matches every ticker.
func (s *ClickHouseDecisionStorage) Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeDecision, error) {
	q, args := s.querySQL(ticker, from, to, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TradeDecision, 0, limit)
	for rows.Next() {
		var (
			d             models.TradeDecision
			state, action string
		)
		if err := rows.Scan(&d.Timestamp, &d.Ticker, &state, &action, &d.Confidence, &d.TriggeredRules); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.State = models.TradeState(state)
		d.Action = models.Action(action)
		d.Timestamp = d.Timestamp.UTC()
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *ClickHouseDecisionStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseDecisionStorage) Close() error { return nil }

func (s *ClickHouseDecisionStorage) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (ts, ticker, state, action, confidence, triggered_rules)", s.table)
}

func (s *ClickHouseDecisionStorage) querySQL(ticker string, from, to time.Time, limit int) (string, []interface{}) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	if !from.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, to.UTC())
	}
	if ticker != "" {
		where = append(where, "ticker = ?")
		args = append(args, strings.ToUpper(ticker))
	}
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q := fmt.Sprintf(
		"SELECT ts, ticker, state, action, confidence, triggered_rules FROM %s WHERE %s ORDER BY ts DESC LIMIT ?",
		s.table, strings.Join(where, " AND "),
	)
	return q, args
}

// KafkaDecisionPublisher implements Publisher. Messages are keyed by
// ticker so one ticker's decisions stay ordered.
type KafkaDecisionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.Publisher = (*KafkaDecisionPublisher)(nil)

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Topic() string { return p.topic }

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, d *models.TradeDecision) error {
	return p.PublishBatch(ctx, []*models.TradeDecision{d})
}

func (p *KafkaDecisionPublisher) PublishBatch(ctx context.Context, ds []*models.TradeDecision) error {
	msgs := make([]pkgkafka.Message, 0, len(ds))
	for _, d := range ds {
		if d == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(d.Ticker),
			Value:   d,
			Headers: map[string]string{"action": string(d.Action)},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
