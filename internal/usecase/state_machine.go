package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/logger"
)

// NextState is the pure transition function. BUY or SELL from WAIT arms;
// the same call from ARMED enters; ENTER always returns to WAIT. Signals
// other than BUY and SELL count as HOLD, and an unknown state resets.
func NextState(current models.TradeState, signal models.Signal) (models.TradeState, models.Action) {
	switch current {
	case models.StateWait:
		switch signal {
		case models.SignalBuy:
			return models.StateArmed, models.ActionArmForBuy
		case models.SignalSell:
			return models.StateArmed, models.ActionArmForSell
		default:
			return models.StateWait, models.ActionWait
		}
	case models.StateArmed:
		switch signal {
		case models.SignalBuy:
			return models.StateEnter, models.ActionBuy
		case models.SignalSell:
			return models.StateEnter, models.ActionSell
		default:
			return models.StateWait, models.ActionDisarm
		}
	case models.StateEnter:
		return models.StateWait, models.ActionPositionEntered
	default:
		return models.StateWait, models.ActionResetToWait
	}
}

// StateMachine applies signals to per-session state held in a StateStore.
// Load, transition and save run under the session lock.
type StateMachine struct {
	store domrepo.StateStore
	log   *logger.Logger
	now   func() time.Time
}

func NewStateMachine(store domrepo.StateStore, log *logger.Logger) *StateMachine {
	if log == nil {
		log = logger.Nop()
	}
	return &StateMachine{store: store, log: log, now: time.Now}
}

// Current returns the session state, or the initial state if the session
// has never been evaluated.
func (m *StateMachine) Current(ctx context.Context, session string) (models.TradeStateData, error) {
	data, err := m.store.Load(ctx, session)
	if errors.Is(err, models.ErrStateNotFound) {
		return models.InitialStateData(), nil
	}
	if err != nil {
		return models.TradeStateData{}, fmt.Errorf("load state: %w", err)
	}
	return data, nil
}

// Apply moves the session one step and persists the result.
func (m *StateMachine) Apply(ctx context.Context, session string, signal models.Signal) (models.Transition, error) {
	unlock, err := m.store.Lock(ctx, session)
	if err != nil {
		return models.Transition{}, err
	}
	defer unlock()

	cur, err := m.Current(ctx, session)
	if err != nil {
		return models.Transition{}, err
	}

	next, action := NextState(cur.CurrentState, signal)
	data := models.TradeStateData{
		CurrentState:  next,
		PreviousState: cur.CurrentState,
		Timestamp:     m.now().UTC(),
	}
	if err := m.store.Save(ctx, session, data); err != nil {
		return models.Transition{}, fmt.Errorf("save state: %w", err)
	}

	m.log.Debug("state transition",
		logger.String("session", session),
		logger.String("from", string(cur.CurrentState)),
		logger.String("to", string(next)),
		logger.String("action", string(action)),
	)
	return models.Transition{From: cur.CurrentState, To: next, Action: action, Signal: signal}, nil
}
