package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"TradeCore/internal/domain/models"
	drepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/logger"
)

const (
	DefaultSessionPrefix    = "trading-workflow"
	defaultCycleConcurrency = 4
)

// TradeCycle runs the per-ticker workflow: market data, rule evaluation,
// state transition, decision, output.
type TradeCycle struct {
	market      drepo.MarketDataProvider
	aggregator  *SignalAggregator
	machine     *StateMachine
	factory     *DecisionFactory
	handler     DecisionHandler
	metrics     drepo.Metrics
	log         *logger.Logger
	prefix      string
	concurrency int
}

type CycleOption func(*TradeCycle)

// WithSessionPrefix sets the prefix of per-ticker session ids.
func WithSessionPrefix(prefix string) CycleOption {
	return func(c *TradeCycle) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithConcurrency caps the number of tickers evaluated at once by RunUniverse.
func WithConcurrency(n int) CycleOption {
	return func(c *TradeCycle) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewTradeCycle(
	market drepo.MarketDataProvider,
	aggregator *SignalAggregator,
	machine *StateMachine,
	factory *DecisionFactory,
	handler DecisionHandler,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...CycleOption,
) *TradeCycle {
	if log == nil {
		log = logger.Nop()
	}
	c := &TradeCycle{
		market:      market,
		aggregator:  aggregator,
		machine:     machine,
		factory:     factory,
		handler:     handler,
		metrics:     metrics,
		log:         log,
		prefix:      DefaultSessionPrefix,
		concurrency: defaultCycleConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session id that holds ticker's state.
func (c *TradeCycle) Session(ticker string) string {
	return c.prefix + ":" + normalizeTicker(ticker)
}

// State returns the persisted state of ticker's session.
func (c *TradeCycle) State(ctx context.Context, ticker string) (models.TradeStateData, error) {
	if normalizeTicker(ticker) == "" {
		return models.TradeStateData{}, models.ErrEmptyTicker
	}
	return c.machine.Current(ctx, c.Session(ticker))
}

// Run performs one trade cycle for ticker. When the decision was produced
// but the handler failed, the result is returned together with the error.
func (c *TradeCycle) Run(ctx context.Context, ticker string) (*models.CycleResult, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return nil, models.ErrEmptyTicker
	}
	start := time.Now()
	session := c.Session(ticker)
	log := c.log.With(logger.String("ticker", ticker), logger.String("session", session))

	md, err := c.market.GetMarketData(ctx, ticker)
	if err != nil {
		c.metrics.RecordError("market_data")
		return nil, fmt.Errorf("%w: %w", models.ErrMarketDataUnavailable, err)
	}
	c.metrics.RecordLastPrice(ticker, md.Price)

	snap := md.Snapshot()
	snap.Ticker = ticker
	if err := snap.Validate(); err != nil {
		c.metrics.RecordError("snapshot")
		return nil, err
	}

	eval := c.aggregator.Evaluate(snap)
	c.metrics.RecordSignal(eval.OverallSignal, eval.OverallConfidence)
	for _, r := range eval.Triggered() {
		c.metrics.RecordRuleTriggered(r.Kind)
	}

	tr, err := c.machine.Apply(ctx, session, eval.OverallSignal)
	if err != nil {
		c.metrics.RecordError("state")
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	c.metrics.RecordTransition(tr)

	var primary *models.RuleResult
	if r, ok := eval.Primary(); ok {
		primary = &r
	}
	decision := c.factory.Create(ticker, tr.From, tr.Action, eval.OverallConfidence, primary)
	c.metrics.RecordDecision(&decision)

	result := &models.CycleResult{
		Ticker:     ticker,
		Session:    session,
		MarketData: md,
		Evaluation: eval,
		Transition: tr,
		Decision:   decision,
	}

	if c.handler != nil {
		if err := c.handler.Handle(ctx, &decision); err != nil {
			log.Error("decision output failed", logger.Error(err))
			return result, fmt.Errorf("handle decision: %w", err)
		}
	}

	c.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	log.Info("trade cycle complete",
		logger.String("signal", string(eval.OverallSignal)),
		logger.Float64("confidence", eval.OverallConfidence),
		logger.String("from", string(tr.From)),
		logger.String("to", string(tr.To)),
		logger.String("action", string(tr.Action)),
	)
	return result, nil
}

// RunUniverse runs a cycle for every ticker with bounded concurrency. Items
// keep input order, duplicates included; one failure never aborts the rest.
func (c *TradeCycle) RunUniverse(ctx context.Context, tickers []string) []models.UniverseItem {
	items := make([]models.UniverseItem, len(tickers))
	if len(tickers) == 0 {
		return items
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, t := range tickers {
		items[i].Ticker = normalizeTicker(t)
		g.Go(func() error {
			res, err := c.Run(ctx, t)
			items[i].Result = res
			if err != nil {
				items[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
