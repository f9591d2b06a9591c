package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TradeCore/internal/domain/models"
)

func TestDecisionFactoryCreate(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 0, 123456789, time.FixedZone("EST", -5*3600))
	f := NewDecisionFactory().WithClock(func() time.Time { return at })

	triggered := &models.RuleResult{Kind: models.RulePrice, Triggered: true, Rule: "price > 50-DMA + gap up"}
	quiet := &models.RuleResult{Kind: models.RulePrice, Triggered: false, Rule: "price > 50-DMA"}

	d := f.Create("AAPL", models.StateWait, models.ActionArmForBuy, 0.82, triggered)
	assert.Equal(t, "AAPL", d.Ticker)
	assert.Equal(t, models.StateWait, d.State)
	assert.Equal(t, models.ActionArmForBuy, d.Action)
	assert.Equal(t, 0.82, d.Confidence)
	assert.Equal(t, []string{"price > 50-DMA + gap up"}, d.TriggeredRules)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 30, 0, 123000000, time.UTC), d.Timestamp)

	d = f.Create("AAPL", models.StateArmed, models.ActionDisarm, 0, quiet)
	assert.Equal(t, DefaultDecisionConfidence, d.Confidence)
	assert.NotNil(t, d.TriggeredRules)
	assert.Empty(t, d.TriggeredRules)

	d = f.Create("AAPL", models.StateEnter, models.ActionPositionEntered, 0.4, nil)
	assert.Equal(t, 0.4, d.Confidence)
	assert.Empty(t, d.TriggeredRules)
}
