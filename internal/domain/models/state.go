package models

import "time"

type TradeState string

const (
	StateWait  TradeState = "WAIT"
	StateArmed TradeState = "ARMED"
	StateEnter TradeState = "ENTER"
)

func (s TradeState) Valid() bool {
	switch s {
	case StateWait, StateArmed, StateEnter:
		return true
	}
	return false
}

// Action is the transition label recorded on a decision.
type Action string

const (
	ActionArmForBuy       Action = "ARM_FOR_BUY"
	ActionArmForSell      Action = "ARM_FOR_SELL"
	ActionWait            Action = "WAIT"
	ActionBuy             Action = "BUY"
	ActionSell            Action = "SELL"
	ActionDisarm          Action = "DISARM"
	ActionPositionEntered Action = "POSITION_ENTERED"
	ActionResetToWait     Action = "RESET_TO_WAIT"
)

// Transition is one application of a signal to a state.
type Transition struct {
	From   TradeState `json:"from"`
	To     TradeState `json:"to"`
	Action Action     `json:"action"`
	Signal Signal     `json:"signal"`
}

// TradeStateData is the persisted state of one trading session.
type TradeStateData struct {
	CurrentState  TradeState `json:"currentState"`
	PreviousState TradeState `json:"previousState"`
	Timestamp     time.Time  `json:"timestamp"`
}

// InitialStateData is the state of a session that has never been evaluated.
func InitialStateData() TradeStateData {
	return TradeStateData{CurrentState: StateWait, PreviousState: StateWait}
}
