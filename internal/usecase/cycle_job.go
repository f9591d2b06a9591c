package usecase

import (
	"context"
	"fmt"

	"TradeCore/pkg/logger"
	"TradeCore/pkg/queue"
)

// CycleJobType is the queue message type that runs one trade cycle.
const CycleJobType = "trade.cycle"

type CyclePayload struct {
	Ticker string `json:"ticker"`
}

// CycleJob executes queued trade cycles.
type CycleJob struct {
	cycle *TradeCycle
	log   *logger.Logger
}

var _ queue.Job = (*CycleJob)(nil)

func NewCycleJob(cycle *TradeCycle, log *logger.Logger) *CycleJob {
	if log == nil {
		log = logger.Nop()
	}
	return &CycleJob{cycle: cycle, log: log}
}

func (j *CycleJob) Name() string { return "trade-cycle" }
func (j *CycleJob) Type() string { return CycleJobType }

// Handle runs the cycle. Once a decision exists the state has moved, so an
// output failure is logged rather than returned; a retry would transition
// the session a second time.
func (j *CycleJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CyclePayload](payload)
	if err != nil {
		return fmt.Errorf("cycle payload: %w", err)
	}
	res, err := j.cycle.Run(ctx, p.Ticker)
	if err != nil && res != nil {
		j.log.Warn("cycle decided but output failed",
			logger.String("ticker", res.Ticker),
			logger.Error(err))
		return nil
	}
	return err
}
