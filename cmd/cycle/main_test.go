package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/domain/models"
	"TradeCore/internal/repository"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := "environment: test\n" +
		"logger:\n  level: error\n" +
		"market_data:\n  provider: simulated\n" +
		"output:\n  csv_path: " + filepath.Join(dir, "decisions.csv") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunWritesResultsAndCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	stateFile := filepath.Join(dir, "state.json")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-tickers", "aapl, msft", "-state-file", stateFile}, &out)
	require.NoError(t, err)

	var items []models.UniverseItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "AAPL", items[0].Ticker)
	assert.Equal(t, "MSFT", items[1].Ticker)
	for _, it := range items {
		require.NotNil(t, it.Result)
		assert.Equal(t, models.StateWait, it.Result.Decision.State)
	}

	b, err := os.ReadFile(stateFile)
	require.NoError(t, err)
	states := map[string]models.TradeStateData{}
	require.NoError(t, json.Unmarshal(b, &states))
	assert.Contains(t, states, "trading-workflow:AAPL")
	assert.Contains(t, states, "trading-workflow:MSFT")

	rows, err := repository.ReadDecisions(filepath.Join(dir, "decisions.csv"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	stateFile := filepath.Join(dir, "state.json")

	seed, err := json.Marshal(map[string]models.TradeStateData{
		"trading-workflow:AAPL": {CurrentState: models.StateEnter, PreviousState: models.StateArmed},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(stateFile, seed, 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, "-state-file", stateFile}, &out))

	var items []models.UniverseItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, models.StateEnter, items[0].Result.Decision.State)
}

func TestRunRejectsBadFlags(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), []string{"-nope"}, &out))
}
