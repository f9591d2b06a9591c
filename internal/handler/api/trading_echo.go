package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/internal/usecase"
	xhttp "TradeCore/pkg/http"
	xlogger "TradeCore/pkg/logger"
)

// DecisionReader returns recent decisions, newest first.
type DecisionReader interface {
	Recent(ctx context.Context, ticker string, limit int) ([]models.TradeDecision, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// TradingEchoHandler serves the trading endpoints under /api.
type TradingEchoHandler struct {
	logger     *xlogger.Logger
	aggregator *usecase.SignalAggregator
	cycle      *usecase.TradeCycle
	market     domrepo.MarketDataProvider
	decisions  DecisionReader
	checks     map[string]HealthCheck
}

type HandlerOption func(*TradingEchoHandler)

func WithDecisionReader(r DecisionReader) HandlerOption {
	return func(h *TradingEchoHandler) { h.decisions = r }
}

// WithHealthCheck adds a dependency probed by /healthz.
func WithHealthCheck(name string, fn HealthCheck) HandlerOption {
	return func(h *TradingEchoHandler) {
		if fn != nil {
			h.checks[name] = fn
		}
	}
}

func NewTradingEchoHandler(
	logger *xlogger.Logger,
	aggregator *usecase.SignalAggregator,
	cycle *usecase.TradeCycle,
	market domrepo.MarketDataProvider,
	opts ...HandlerOption,
) *TradingEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &TradingEchoHandler{
		logger:     logger,
		aggregator: aggregator,
		cycle:      cycle,
		market:     market,
		checks:     make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/evaluate", h.Evaluate)
	g.POST("/transition", h.Transition)
	g.POST("/cycles", h.Cycle)
	g.POST("/universe", h.Universe)
	g.GET("/state/:ticker", h.State)
	g.GET("/decisions", h.Decisions)
	g.GET("/market/:ticker", h.Market)
	e.GET("/healthz", h.Health)
}

func (h *TradingEchoHandler) Evaluate(c echo.Context) error {
	req := &models.PriceSnapshot{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	return xhttp.SuccessResponse(c, h.aggregator.Evaluate(*req))
}

// Transition applies the pure transition function without touching any
// session.
func (h *TradingEchoHandler) Transition(c echo.Context) error {
	req := &models.TransitionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	state := models.TradeState(strings.ToUpper(req.State))
	if !state.Valid() {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown state %q", req.State).WithParam("field", "state"))
	}
	next, action := usecase.NextState(state, models.Signal(req.Signal))
	return xhttp.SuccessResponse(c, models.TransitionResponse{NextState: next, Action: action})
}

func (h *TradingEchoHandler) Cycle(c echo.Context) error {
	req := &models.CycleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.cycle.Run(c.Request().Context(), req.Ticker)
	if err != nil && res != nil {
		// the state already moved; report the cycle and surface the output failure in the log only
		h.logger.Warn("cycle completed with output error", xlogger.String("ticker", res.Ticker), xlogger.Error(err))
		return xhttp.SuccessResponse(c, res)
	}
	if err != nil {
		return h.fail(c, "cycle", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) Universe(c echo.Context) error {
	req := &models.UniverseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items := h.cycle.RunUniverse(c.Request().Context(), req.Tickers)
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *TradingEchoHandler) State(c echo.Context) error {
	data, err := h.cycle.State(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return h.fail(c, "state", err)
	}
	return xhttp.SuccessResponse(c, data)
}

func (h *TradingEchoHandler) Decisions(c echo.Context) error {
	req := &models.DecisionsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.decisions == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("no decision store configured"))
	}
	rows, err := h.decisions.Recent(c.Request().Context(), req.Ticker, req.Limit)
	if err != nil {
		return h.fail(c, "decisions", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingEchoHandler) Market(c echo.Context) error {
	md, err := h.market.GetMarketData(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return h.fail(c, "market", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, md)
}

func (h *TradingEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}

// fail maps use-case errors onto HTTP errors.
func (h *TradingEchoHandler) fail(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrEmptyTicker), errors.Is(err, models.ErrInvalidSnapshot):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrSessionBusy):
		appErr = xhttp.ConflictError(err.Error())
	case errors.Is(err, models.ErrMarketDataUnavailable):
		appErr = xhttp.ServiceUnavailableError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.ServiceUnavailableError("request timed out")
	default:
		h.logger.Error(op+" failed", xlogger.Error(err))
		appErr = xhttp.InternalError("internal error")
	}
	return xhttp.AppErrorResponse(c, appErr.WithError(err))
}
