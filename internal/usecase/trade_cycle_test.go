package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeCore/internal/domain/models"
	"TradeCore/internal/services/rules"
)

func TestTradeCycleRunArmsThenEnters(t *testing.T) {
	ctx := context.Background()
	h := &recordingHandler{}
	c := newTestCycle(&fakeMarket{}, h)

	first, err := c.Run(ctx, " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, "trading-workflow:AAPL", first.Session)
	assert.Equal(t, models.SignalBuy, first.Evaluation.OverallSignal)
	assert.Equal(t, models.Transition{From: models.StateWait, To: models.StateArmed, Action: models.ActionArmForBuy, Signal: models.SignalBuy}, first.Transition)

	d := first.Decision
	assert.Equal(t, models.StateWait, d.State)
	assert.Equal(t, models.ActionArmForBuy, d.Action)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, []string{rules.PriceRuleLabel + " + gap up"}, d.TriggeredRules)

	second, err := c.Run(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.StateArmed, second.Decision.State)
	assert.Equal(t, models.ActionBuy, second.Decision.Action)

	state, err := c.State(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, models.StateEnter, state.CurrentState)
	assert.Equal(t, models.StateArmed, state.PreviousState)

	require.Len(t, h.got, 2)
	assert.Equal(t, first.Decision, h.got[0])
}

func TestTradeCycleSessionPrefix(t *testing.T) {
	c := newTestCycle(&fakeMarket{}, nil, WithSessionPrefix("demo"))
	res, err := c.Run(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "demo:MSFT", res.Session)
}

func TestTradeCycleErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestCycle(&fakeMarket{fail: map[string]bool{"BAD": true}}, nil)

	_, err := c.Run(ctx, "  ")
	assert.ErrorIs(t, err, models.ErrEmptyTicker)

	res, err := c.Run(ctx, "bad")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, models.ErrMarketDataUnavailable)

	state, err := c.State(ctx, "BAD")
	require.NoError(t, err)
	assert.Equal(t, models.InitialStateData(), state)
}

func TestTradeCycleHandlerFailureStillReturnsResult(t *testing.T) {
	c := newTestCycle(&fakeMarket{}, &recordingHandler{fail: true})
	res, err := c.Run(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBackendDown))
	require.NotNil(t, res)
	assert.Equal(t, models.ActionArmForBuy, res.Decision.Action)
}

func TestRunUniverseKeepsOrderAndDuplicates(t *testing.T) {
	market := &fakeMarket{fail: map[string]bool{"BAD": true}}
	c := newTestCycle(market, nil, WithConcurrency(3))

	items := c.RunUniverse(context.Background(), []string{"AAPL", "bad", "MSFT", "AAPL"})
	require.Len(t, items, 4)
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT", "AAPL"},
		[]string{items[0].Ticker, items[1].Ticker, items[2].Ticker, items[3].Ticker})

	assert.Empty(t, items[0].Error)
	assert.NotEmpty(t, items[1].Error)
	assert.Nil(t, items[1].Result)
	assert.Empty(t, items[2].Error)
	assert.Empty(t, items[3].Error)

	// the duplicate ran against the same session, one after the other
	actions := []models.Action{items[0].Result.Decision.Action, items[3].Result.Decision.Action}
	assert.ElementsMatch(t, []models.Action{models.ActionArmForBuy, models.ActionBuy}, actions)
	assert.Equal(t, 4, market.Calls())
}

func TestRunUniverseEmpty(t *testing.T) {
	c := newTestCycle(&fakeMarket{}, nil)
	items := c.RunUniverse(context.Background(), nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
