package api

import (
	"context"
	"net/http"
	"time"

	models "Fractrade/internal/domain/models"
	domrepo "Fractrade/internal/domain/repository"
	"Fractrade/internal/risk"
	"Fractrade/internal/usecase"
	xhttp "Fractrade/pkg/http"
	xlogger "Fractrade/pkg/logger"
	"Fractrade/pkg/util"

	"github.com/labstack/echo/v4"
)

// TradingEchoHandler exposes the read side of the pipeline plus manual trade
// control. Live state comes from the in-memory components; trade history is
// served from the store.
type TradingEchoHandler struct {
	logger    *xlogger.Logger
	collector *usecase.BarCollector
	scorer    *usecase.Scorer
	engine    *usecase.TradeEngine
	book      *risk.Book
	bars      domrepo.BarStore
	trades    domrepo.TradeStore
}

func NewTradingEchoHandler(
	logger *xlogger.Logger,
	collector *usecase.BarCollector,
	scorer *usecase.Scorer,
	engine *usecase.TradeEngine,
	book *risk.Book,
	bars domrepo.BarStore,
	trades domrepo.TradeStore,
) *TradingEchoHandler {
	return &TradingEchoHandler{
		logger:    logger,
		collector: collector,
		scorer:    scorer,
		engine:    engine,
		book:      book,
		bars:      bars,
		trades:    trades,
	}
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/bars", h.Bars)
	g.GET("/fractals", h.Fractals)
	g.GET("/signals", h.Signals)
	g.GET("/trades", h.Trades)
	g.POST("/trades/:id/close", h.CloseTrade)
	g.GET("/risk", h.Risk)
}

func (h *TradingEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	// A since bound switches from the cached latest-N path to a range
	// query, with the bound aligned to the timeframe's bar boundary.
	if req.Since != "" {
		since, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid since value %q", req.Since))
		}
		from, _ := util.AlignFromTo(since, time.Now().UTC(), string(tf))
		rows, err := h.bars.GetBars(c.Request().Context(), req.Symbol, tf, from, req.Limit)
		if err != nil {
			h.logger.Error("bars range query error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.SuccessResponse(c, rows)
	}

	rows, err := h.bars.GetLatestNBars(c.Request().Context(), req.Symbol, tf, req.Limit)
	if err != nil {
		h.logger.Error("bars query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rows)
}

func (h *TradingEchoHandler) Fractals(c echo.Context) error {
	req := &models.FractalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	rows := h.collector.RecentFractals(req.Symbol, tf, req.Limit)
	return xhttp.SuccessResponse(c, rows)
}

func (h *TradingEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.scorer.Recent(req.Symbol, req.Limit))
}

// Trades merges the engine's live snapshots over the persisted history, so
// callers see in-flight PENDING trades before the async upsert lands.
func (h *TradingEchoHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	status := models.TradeStatus(req.Status)

	live := h.engine.Trades(req.Symbol, status)
	stored, err := h.trades.GetTrades(c.Request().Context(), req.Symbol, status, req.Limit)
	if err != nil {
		h.logger.Error("trades query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	seen := make(map[string]struct{}, len(live))
	merged := make([]*models.Trade, 0, len(live)+len(stored))
	for _, tr := range live {
		seen[tr.ID] = struct{}{}
		merged = append(merged, tr)
	}
	for _, tr := range stored {
		if _, ok := seen[tr.ID]; ok {
			continue
		}
		merged = append(merged, tr)
	}
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}
	return xhttp.SuccessResponse(c, merged)
}

func (h *TradingEchoHandler) CloseTrade(c echo.Context) error {
	req := &models.CloseTradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tr, ok := h.engine.Trade(req.ID)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("trade %s not found", req.ID))
	}
	price, ok := h.collector.LastClose(tr.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("no recent price for "+tr.Symbol))
	}
	if err := h.engine.CloseManually(req.ID, price); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	closed, _ := h.engine.Trade(req.ID)
	return xhttp.SuccessResponse(c, closed)
}

func (h *TradingEchoHandler) Risk(c echo.Context) error {
	st := h.book.Snapshot()
	lim := h.book.Limits()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"state":  st,
		"limits": lim,
	})
}

// Health reports stream connectivity and storage reachability.
func (h *TradingEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"stream":  h.collector.IsConnected(),
		"storage": true,
		"time":    time.Now().UTC(),
	}
	code := http.StatusOK
	if err := h.bars.Health(ctx); err != nil {
		status["storage"] = false
		code = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, code, status)
}
