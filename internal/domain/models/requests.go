package models

// Requests for the trading HTTP endpoints.

type TransitionRequest struct {
	State  string `json:"state" validate:"required"`
	Signal string `json:"signal" validate:"required,oneof=BUY SELL HOLD"`
}

type TransitionResponse struct {
	NextState TradeState `json:"nextState"`
	Action    Action     `json:"action"`
}

type CycleRequest struct {
	Ticker string `json:"ticker" validate:"required,max=16"`
}

type UniverseRequest struct {
	Tickers []string `json:"tickers" validate:"max=100,dive,required,max=16"`
}

type DecisionsQuery struct {
	Ticker string `query:"ticker"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}
