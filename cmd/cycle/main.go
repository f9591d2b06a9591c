package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"TradeCore/internal/di"
	"TradeCore/internal/domain/models"
	"TradeCore/internal/repository"
	"TradeCore/internal/service/marketdata"
	"TradeCore/internal/usecase"
	"TradeCore/pkg/config"
	"TradeCore/pkg/logger"
	"TradeCore/pkg/metrics"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "cycle:", err)
		os.Exit(1)
	}
}

// run evaluates every ticker once, prints the results as JSON and writes the
// session checkpoint. It fails when any ticker failed.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cycle", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path; built-in defaults when empty")
	tickers := fs.String("tickers", "AAPL", "comma separated tickers")
	stateFile := fs.String("state-file", "", "JSON checkpoint of session states")
	simulate := fs.Bool("simulate", false, "use simulated market data")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *simulate {
		cfg.MarketData.Provider = marketdata.SourceSimulated
	}

	log, err := logger.New(&logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format, Output: "stderr"})
	if err != nil {
		return err
	}

	store := repository.NewMemoryStateStore(cfg.Trading.LockWait)
	if *stateFile != "" {
		if err := restoreStates(store, *stateFile); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	rec := metrics.NewWithRegisterer(reg)
	quoteCache := di.ProvideQuoteCache(nil)
	defer quoteCache.Close()

	sink := repository.NewCSVSink(cfg.Output.CSVPath)
	proc := usecase.NewDecisionProcessor(sink, nil, nil, nil, rec, log, usecase.BackendNone)
	cycle := di.ProvideTradeCycle(cfg,
		di.ProvideMarketData(cfg, quoteCache, reg, rec, log),
		di.ProvideAggregator(cfg),
		usecase.NewStateMachine(store, log),
		proc,
		rec,
		log,
	)

	items := cycle.RunUniverse(ctx, splitTickers(*tickers))

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	if *stateFile != "" {
		if err := saveStates(store, *stateFile); err != nil {
			return err
		}
	}

	var failed []string
	for _, it := range items {
		if it.Error != "" {
			failed = append(failed, it.Ticker)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d tickers failed: %s", len(failed), len(items), strings.Join(failed, ","))
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.LoadWithEnv(path)
}

func splitTickers(v string) []string {
	var out []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, strings.ToUpper(t))
		}
	}
	return out
}

func restoreStates(store *repository.MemoryStateStore, path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	states := map[string]models.TradeStateData{}
	if err := json.Unmarshal(b, &states); err != nil {
		return fmt.Errorf("parse state file: %w", err)
	}
	store.Restore(states)
	return nil
}

func saveStates(store *repository.MemoryStateStore, path string) error {
	b, err := json.MarshalIndent(store.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode states: %w", err)
	}
	tmp := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, path)
}
