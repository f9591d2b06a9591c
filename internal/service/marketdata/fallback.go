package marketdata

import (
	"context"
	"errors"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/logger"
)

// FallbackProvider serves primary's data and switches to fallback for any
// primary error except a cancelled context.
type FallbackProvider struct {
	primary  domrepo.MarketDataProvider
	fallback domrepo.MarketDataProvider
	metrics  domrepo.Metrics
	log      *logger.Logger
}

var _ domrepo.MarketDataProvider = (*FallbackProvider)(nil)

func NewFallbackProvider(primary, fallback domrepo.MarketDataProvider, metrics domrepo.Metrics, log *logger.Logger) *FallbackProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackProvider{primary: primary, fallback: fallback, metrics: metrics, log: log}
}

func (p *FallbackProvider) GetMarketData(ctx context.Context, ticker string) (*models.MarketData, error) {
	md, err := p.primary.GetMarketData(ctx, ticker)
	if err == nil {
		return md, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, models.ErrEmptyTicker) {
		return nil, err
	}

	p.metrics.RecordError("market_data_fallback")
	p.log.Warn("market data fallback",
		logger.String("ticker", ticker),
		logger.Error(err))

	md, ferr := p.fallback.GetMarketData(ctx, ticker)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return md, nil
}
