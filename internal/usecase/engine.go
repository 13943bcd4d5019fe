package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
	"Fractrade/internal/risk"
	"Fractrade/pkg/logger"
)

// Persister queues trade snapshots for asynchronous, retried persistence.
type Persister interface {
	EnqueueTrade(t models.Trade)
}

// EngineConfig holds execution-side tuning for the trade engine.
type EngineConfig struct {
	ExecutionTimeout time.Duration
}

// TradeEngine owns every trade from proposal through closure. Transitions
// are monotonic (PENDING -> OPEN -> CLOSED, PENDING -> CANCELLED); each one
// is logged, persisted and published as an event.
type TradeEngine struct {
	cfg     EngineConfig
	book    *risk.Book
	gateway drepo.ExecutionGateway
	persist Persister
	events  drepo.EventPublisher
	metrics drepo.Metrics
	log     *logger.Logger

	mu     sync.Mutex
	trades map[string]*models.Trade
}

func NewTradeEngine(
	cfg EngineConfig,
	book *risk.Book,
	gateway drepo.ExecutionGateway,
	persist Persister,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
) *TradeEngine {
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 10 * time.Second
	}
	return &TradeEngine{
		cfg:     cfg,
		book:    book,
		gateway: gateway,
		persist: persist,
		events:  events,
		metrics: metrics,
		log:     log,
		trades:  make(map[string]*models.Trade),
	}
}

// OnSignal gates a signal through the risk book and, when approved, creates
// a PENDING trade and submits it to the gateway off the hot path.
func (e *TradeEngine) OnSignal(ctx context.Context, sig *models.Signal) {
	now := time.Now()
	dec := e.book.Reserve(sig.Side(), sig.RefPrice, now)
	if !dec.Approved {
		e.metrics.RecordRiskRejection(string(dec.Reason))
		e.log.Info("signal rejected by risk gate",
			logger.String("symbol", sig.Symbol),
			logger.String("signal", sig.ID),
			logger.String("reason", string(dec.Reason)),
		)
		return
	}

	tr := models.NewTrade(uuid.NewString(), sig, dec.Size, dec.StopLoss, dec.TakeProfit, now)
	e.mu.Lock()
	e.trades[tr.ID] = tr
	e.mu.Unlock()

	e.metrics.RecordTrade(tr.Symbol, string(tr.Status))
	e.log.Info("trade proposed",
		logger.String("trade", tr.ID),
		logger.String("symbol", tr.Symbol),
		logger.String("side", string(tr.Side)),
		logger.Float64("entry", tr.EntryPrice),
		logger.Float64("stop_loss", tr.StopLoss),
		logger.Float64("take_profit", tr.TakeProfit),
		logger.Float64("size", tr.Size),
	)
	e.record(tr, "signal "+sig.ID)

	go e.submit(ctx, tr)
}

// submit resolves a PENDING trade via the gateway: fill opens it, rejection
// or the execution timeout cancels it.
func (e *TradeEngine) submit(ctx context.Context, tr *models.Trade) {
	subCtx, cancel := context.WithTimeout(ctx, e.cfg.ExecutionTimeout)
	defer cancel()

	res, err := e.gateway.SubmitOrder(subCtx, drepo.OrderRequest{
		TradeID:    tr.ID,
		Symbol:     tr.Symbol,
		Side:       tr.Side,
		Size:       tr.Size,
		LimitPrice: tr.EntryPrice,
	})

	switch {
	case err != nil:
		reason := "gateway error"
		if subCtx.Err() != nil {
			reason = "execution timeout"
		}
		e.cancelPending(tr, reason, err)
	case !res.Filled:
		e.cancelPending(tr, res.Reason, nil)
	default:
		e.openPending(tr, res)
	}
}

func (e *TradeEngine) openPending(tr *models.Trade, res *drepo.OrderResult) {
	now := time.Now()
	e.mu.Lock()
	err := tr.Open(res.OrderID, res.FillPrice, now)
	e.mu.Unlock()
	if err != nil {
		e.log.Warn("fill for non-pending trade ignored", logger.String("trade", tr.ID), logger.Error(err))
		return
	}

	e.book.CommitOpen(now)
	e.metrics.RecordTrade(tr.Symbol, string(models.TradeOpen))
	e.log.Info("trade opened",
		logger.String("trade", tr.ID),
		logger.String("symbol", tr.Symbol),
		logger.Float64("fill", res.FillPrice),
	)
	e.record(tr, "fill confirmed")
}

func (e *TradeEngine) cancelPending(tr *models.Trade, reason string, cause error) {
	now := time.Now()
	e.mu.Lock()
	err := tr.Cancel(reason, now)
	e.mu.Unlock()
	if err != nil {
		return
	}

	e.book.Release()
	e.metrics.RecordTrade(tr.Symbol, string(models.TradeCancelled))
	execErr := &models.ExecutionError{TradeID: tr.ID, Reason: reason, Err: cause}
	e.log.Warn("trade cancelled", logger.String("trade", tr.ID), logger.Error(execErr))
	e.record(tr, reason)
}

// OnBar applies stop-loss/take-profit rules for every open trade on the
// bar's symbol. When both levels are crossed inside one bar the stop wins.
func (e *TradeEngine) OnBar(bar *models.PriceBar) {
	e.mu.Lock()
	var hits []*models.Trade
	for _, tr := range e.trades {
		if tr.Status == models.TradeOpen && tr.Symbol == bar.Symbol {
			hits = append(hits, tr)
		}
	}
	e.mu.Unlock()

	for _, tr := range hits {
		exit, reason, hit := exitLevel(tr, bar)
		if hit {
			e.closeTrade(tr, exit, reason)
		}
	}
}

// exitLevel decides whether a bar touches the trade's stop or target.
// Stop-loss takes priority when both are crossed in the same bar.
func exitLevel(tr *models.Trade, bar *models.PriceBar) (float64, models.CloseReason, bool) {
	if tr.Side == models.Long {
		if bar.Low <= tr.StopLoss {
			return tr.StopLoss, models.CloseStopLoss, true
		}
		if bar.High >= tr.TakeProfit {
			return tr.TakeProfit, models.CloseTakeProfit, true
		}
		return 0, "", false
	}
	if bar.High >= tr.StopLoss {
		return tr.StopLoss, models.CloseStopLoss, true
	}
	if bar.Low <= tr.TakeProfit {
		return tr.TakeProfit, models.CloseTakeProfit, true
	}
	return 0, "", false
}

// CloseManually closes an open trade at the given price on operator request.
func (e *TradeEngine) CloseManually(id string, price float64) error {
	e.mu.Lock()
	tr, ok := e.trades[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("trade %s not found", id)
	}
	if tr.Status != models.TradeOpen {
		return fmt.Errorf("trade %s is %s, only OPEN trades can be closed", id, tr.Status)
	}
	e.closeTrade(tr, price, models.CloseManual)
	return nil
}

func (e *TradeEngine) closeTrade(tr *models.Trade, exit float64, reason models.CloseReason) {
	now := time.Now()
	e.mu.Lock()
	err := tr.Close(exit, reason, now)
	e.mu.Unlock()
	if err != nil {
		return
	}

	st := e.book.ApplyClose(tr.Closure.PnL, now)
	e.metrics.RecordTrade(tr.Symbol, string(models.TradeClosed))
	e.log.Info("trade closed",
		logger.String("trade", tr.ID),
		logger.String("symbol", tr.Symbol),
		logger.String("reason", string(reason)),
		logger.Float64("exit", exit),
		logger.Float64("pnl", tr.Closure.PnL),
		logger.Float64("equity", st.Equity),
	)
	e.record(tr, string(reason))
}

// Trade returns a snapshot of one trade by ID.
func (e *TradeEngine) Trade(id string) (*models.Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, ok := e.trades[id]
	if !ok {
		return nil, false
	}
	cp := *tr
	return &cp, true
}

// Trades returns a snapshot filtered by symbol and status (empty = any).
func (e *TradeEngine) Trades(symbol string, status models.TradeStatus) []*models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.Trade, 0, len(e.trades))
	for _, tr := range e.trades {
		if symbol != "" && tr.Symbol != symbol {
			continue
		}
		if status != "" && tr.Status != status {
			continue
		}
		cp := *tr
		out = append(out, &cp)
	}
	return out
}

// record persists the transition snapshot and publishes the event.
func (e *TradeEngine) record(tr *models.Trade, reason string) {
	e.mu.Lock()
	snapshot := *tr
	e.mu.Unlock()
	if e.persist != nil {
		e.persist.EnqueueTrade(snapshot)
	}
	if e.events != nil {
		ev := &models.TradeEvent{
			TradeID:   snapshot.ID,
			Symbol:    snapshot.Symbol,
			Status:    snapshot.Status,
			Reason:    reason,
			Trade:     &snapshot,
			Timestamp: time.Now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.events.PublishTradeEvent(ctx, ev); err != nil {
				e.metrics.RecordError("publish_trade_event")
			}
		}()
	}
}
