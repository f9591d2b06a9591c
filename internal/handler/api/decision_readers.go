package api

import (
	"context"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

// StorageReader reads decisions from the analytical store.
type StorageReader struct {
	Storage domrepo.Storage
}

func (r StorageReader) Recent(ctx context.Context, ticker string, limit int) ([]models.TradeDecision, error) {
	rows, err := r.Storage.Query(ctx, ticker, time.Time{}, time.Time{}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.TradeDecision, 0, len(rows))
	for _, d := range rows {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// CSVReader reads decisions back from the CSV sink.
type CSVReader struct {
	Sink interface {
		Recent(ticker string, limit int) ([]models.TradeDecision, error)
	}
}

func (r CSVReader) Recent(_ context.Context, ticker string, limit int) ([]models.TradeDecision, error) {
	return r.Sink.Recent(ticker, limit)
}
