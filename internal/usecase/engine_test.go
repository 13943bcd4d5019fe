package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
	"Fractrade/internal/risk"
	"Fractrade/pkg/logger"
)

// fakeGateway resolves every order the same way and records requests.
type fakeGateway struct {
	mu       sync.Mutex
	requests []drepo.OrderRequest
	result   *drepo.OrderResult
	err      error
	done     chan struct{}
}

func newFakeGateway(result *drepo.OrderResult, err error) *fakeGateway {
	return &fakeGateway{result: result, err: err, done: make(chan struct{}, 16)}
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, req drepo.OrderRequest) (*drepo.OrderResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	g.done <- struct{}{}
	return g.result, g.err
}

// waitSubmit blocks until the gateway resolved one order.
func (g *fakeGateway) waitSubmit(t *testing.T) {
	t.Helper()
	select {
	case <-g.done:
	case <-time.After(2 * time.Second):
		t.Fatal("gateway was never called")
	}
}

type capturedTrades struct {
	mu   sync.Mutex
	seen []models.Trade
}

func (c *capturedTrades) EnqueueTrade(tr models.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, tr)
}

func testBook() *risk.Book {
	limits := risk.Limits{
		PositionSizePct:   2,
		MaxPositions:      3,
		StopLossPct:       2,
		TakeProfitPct:     4,
		DailyLossLimitPct: 5,
		MaxDrawdownPct:    15,
	}
	return risk.NewBook(limits, nil, 10000, nil, drepo.NopMetrics{})
}

func testEngine(t *testing.T, gw drepo.ExecutionGateway, book *risk.Book) *TradeEngine {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return NewTradeEngine(EngineConfig{ExecutionTimeout: time.Second}, book, gw, &capturedTrades{}, nil, drepo.NopMetrics{}, log)
}

func testSignal(symbol string, dir models.Direction, price float64) *models.Signal {
	return &models.Signal{
		ID:        symbol + "|" + string(dir) + "|test",
		Symbol:    symbol,
		Direction: dir,
		Score:     0.9,
		RefPrice:  price,
		CreatedAt: time.Now(),
	}
}

func openTrade(t *testing.T, e *TradeEngine, gw *fakeGateway, sig *models.Signal) *models.Trade {
	t.Helper()
	e.OnSignal(context.Background(), sig)
	gw.waitSubmit(t)

	var opened *models.Trade
	require.Eventually(t, func() bool {
		for _, tr := range e.Trades(sig.Symbol, models.TradeOpen) {
			opened = tr
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	return opened
}

func TestSignalFillOpensTrade(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord-1", Filled: true, FillPrice: 50010}, nil)
	book := testBook()
	e := testEngine(t, gw, book)

	tr := openTrade(t, e, gw, testSignal("BTC/USDT", models.Bullish, 50000))

	assert.Equal(t, models.TradeOpen, tr.Status)
	require.NotNil(t, tr.Fill)
	assert.Equal(t, "ord-1", tr.Fill.OrderID)
	assert.Equal(t, 50010.0, tr.Fill.Price)
	assert.Nil(t, tr.Closure)
	assert.Equal(t, 1, book.Snapshot().OpenPositions)

	// Levels were frozen at proposal from the risk decision.
	assert.InDelta(t, 50000*0.98, tr.StopLoss, 1e-6)
	assert.InDelta(t, 50000*1.04, tr.TakeProfit, 1e-6)
}

func TestGatewayRejectionCancelsTrade(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{Filled: false, Reason: "insufficient balance"}, nil)
	book := testBook()
	e := testEngine(t, gw, book)

	e.OnSignal(context.Background(), testSignal("BTC/USDT", models.Bullish, 50000))
	gw.waitSubmit(t)

	require.Eventually(t, func() bool {
		return len(e.Trades("", models.TradeCancelled)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	tr := e.Trades("", models.TradeCancelled)[0]
	assert.Equal(t, "insufficient balance", tr.CancelReason)
	assert.Nil(t, tr.Fill)

	// The reservation was released; the slot is available again.
	assert.Equal(t, 0, book.Snapshot().OpenPositions)
	dec := book.Reserve(models.Long, 50000, time.Now())
	assert.True(t, dec.Approved)
}

func TestGatewayErrorCancelsTrade(t *testing.T) {
	gw := newFakeGateway(nil, errors.New("connection refused"))
	e := testEngine(t, gw, testBook())

	e.OnSignal(context.Background(), testSignal("BTC/USDT", models.Bullish, 50000))
	gw.waitSubmit(t)

	require.Eventually(t, func() bool {
		return len(e.Trades("", models.TradeCancelled)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "gateway error", e.Trades("", models.TradeCancelled)[0].CancelReason)
}

func TestRejectedSignalCreatesNoTrade(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{Filled: true, FillPrice: 1}, nil)
	book := testBook()
	e := testEngine(t, gw, book)

	// Entry 0 is unsizeable; the risk gate rejects before the gateway.
	e.OnSignal(context.Background(), testSignal("BTC/USDT", models.Bullish, 0))

	assert.Empty(t, e.Trades("", ""))
	assert.Empty(t, gw.requests)
}

func TestStopLossClosesLongOnBar(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord-1", Filled: true, FillPrice: 50000}, nil)
	book := testBook()
	e := testEngine(t, gw, book)
	tr := openTrade(t, e, gw, testSignal("BTC/USDT", models.Bullish, 50000))

	e.OnBar(&models.PriceBar{
		Symbol: "BTC/USDT", Timeframe: "1h",
		Open: 49500, High: 49600, Low: tr.StopLoss - 1, Close: 49100,
	})

	closed, ok := e.Trade(tr.ID)
	require.True(t, ok)
	require.Equal(t, models.TradeClosed, closed.Status)
	require.NotNil(t, closed.Closure)
	assert.Equal(t, models.CloseStopLoss, closed.Closure.Reason)
	assert.Equal(t, tr.StopLoss, closed.Closure.Price, "exit books at the level, not the bar extreme")
	assert.Less(t, closed.Closure.PnL, 0.0)

	st := book.Snapshot()
	assert.Equal(t, 0, st.OpenPositions)
	assert.Less(t, st.Equity, 10000.0)
}

func TestStopWinsWhenBothLevelsCross(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord-1", Filled: true, FillPrice: 50000}, nil)
	e := testEngine(t, gw, testBook())
	tr := openTrade(t, e, gw, testSignal("BTC/USDT", models.Bullish, 50000))

	// One wide bar through both the stop and the target.
	e.OnBar(&models.PriceBar{
		Symbol: "BTC/USDT", Timeframe: "1h",
		Open: 50000, High: tr.TakeProfit + 100, Low: tr.StopLoss - 100, Close: 50000,
	})

	closed, ok := e.Trade(tr.ID)
	require.True(t, ok)
	require.NotNil(t, closed.Closure)
	assert.Equal(t, models.CloseStopLoss, closed.Closure.Reason)
}

func TestTakeProfitClosesShort(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord-1", Filled: true, FillPrice: 50000}, nil)
	e := testEngine(t, gw, testBook())
	tr := openTrade(t, e, gw, testSignal("BTC/USDT", models.Bearish, 50000))
	require.Equal(t, models.Short, tr.Side)

	e.OnBar(&models.PriceBar{
		Symbol: "BTC/USDT", Timeframe: "1h",
		Open: 48500, High: 48600, Low: tr.TakeProfit - 1, Close: 48200,
	})

	closed, ok := e.Trade(tr.ID)
	require.True(t, ok)
	require.NotNil(t, closed.Closure)
	assert.Equal(t, models.CloseTakeProfit, closed.Closure.Reason)
	assert.Greater(t, closed.Closure.PnL, 0.0)
}

func TestBarOnOtherSymbolIgnored(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord-1", Filled: true, FillPrice: 50000}, nil)
	e := testEngine(t, gw, testBook())
	tr := openTrade(t, e, gw, testSignal("BTC/USDT", models.Bullish, 50000))

	e.OnBar(&models.PriceBar{Symbol: "ETH/USDT", Timeframe: "1h", Open: 1, High: 1, Low: 0.1, Close: 0.5})

	still, ok := e.Trade(tr.ID)
	require.True(t, ok)
	assert.Equal(t, models.TradeOpen, still.Status)
}

func TestCloseManually(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord-1", Filled: true, FillPrice: 50000}, nil)
	book := testBook()
	e := testEngine(t, gw, book)
	tr := openTrade(t, e, gw, testSignal("BTC/USDT", models.Bullish, 50000))

	require.NoError(t, e.CloseManually(tr.ID, 51000))

	closed, _ := e.Trade(tr.ID)
	assert.Equal(t, models.TradeClosed, closed.Status)
	assert.Equal(t, models.CloseManual, closed.Closure.Reason)
	assert.Greater(t, closed.Closure.PnL, 0.0)

	// Closing twice is an invalid transition.
	assert.Error(t, e.CloseManually(tr.ID, 51000))
	assert.Error(t, e.CloseManually("missing", 51000))
}

func TestPositionCapCountsPendingReservations(t *testing.T) {
	gw := newFakeGateway(&drepo.OrderResult{OrderID: "ord", Filled: true, FillPrice: 50000}, nil)
	book := testBook()
	e := testEngine(t, gw, book)

	for i := 0; i < 3; i++ {
		e.OnSignal(context.Background(), testSignal("BTC/USDT", models.Bullish, 50000+float64(i)))
	}
	// Fourth signal hits the cap regardless of how many fills resolved yet.
	e.OnSignal(context.Background(), testSignal("BTC/USDT", models.Bullish, 50004))

	require.Eventually(t, func() bool {
		return len(e.Trades("", models.TradeOpen)) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, e.Trades("", ""), 3, "the fourth proposal never became a trade")
}
