package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
)

func testLimits() Limits {
	return Limits{
		PositionSizePct:   2,
		MaxPositions:      3,
		StopLossPct:       2,
		TakeProfitPct:     4,
		DailyLossLimitPct: 5,
		MaxDrawdownPct:    15,
	}
}

func healthyState() models.RiskState {
	return models.RiskState{Equity: 10000, PeakEquity: 10000}
}

func TestEvaluateApprovesAndSizes(t *testing.T) {
	dec := Evaluate(testLimits(), healthyState(), models.Long, 100)
	require.True(t, dec.Approved)

	assert.InDelta(t, 98, dec.StopLoss, 1e-9)
	assert.InDelta(t, 104, dec.TakeProfit, 1e-9)

	// size * |entry - stop| == equity * pct / 100
	riskAmount := dec.Size * math.Abs(dec.Entry-dec.StopLoss)
	assert.InDelta(t, 10000*2.0/100, riskAmount, 1e-9)
}

func TestEvaluateShortMirrorsLevels(t *testing.T) {
	dec := Evaluate(testLimits(), healthyState(), models.Short, 100)
	require.True(t, dec.Approved)
	assert.InDelta(t, 102, dec.StopLoss, 1e-9)
	assert.InDelta(t, 96, dec.TakeProfit, 1e-9)
}

func TestEvaluateRejectsAtPositionCap(t *testing.T) {
	st := healthyState()
	st.OpenPositions = 3
	dec := Evaluate(testLimits(), st, models.Long, 100)
	assert.False(t, dec.Approved)
	assert.Equal(t, models.RejectMaxPositions, dec.Reason)
	assert.Zero(t, dec.Size, "no trade is sized on rejection")
}

func TestEvaluateRejectsOnDailyLoss(t *testing.T) {
	st := healthyState()
	st.DailyPnL = -500 // exactly 5% of 10000
	dec := Evaluate(testLimits(), st, models.Long, 100)
	assert.Equal(t, models.RejectDailyLossLimit, dec.Reason)
}

func TestEvaluateRejectsOnDrawdown(t *testing.T) {
	st := healthyState()
	st.DrawdownPct = 15
	dec := Evaluate(testLimits(), st, models.Long, 100)
	assert.Equal(t, models.RejectDrawdownLimit, dec.Reason)
}

func TestEvaluateIsPure(t *testing.T) {
	st := healthyState()
	a := Evaluate(testLimits(), st, models.Long, 250)
	b := Evaluate(testLimits(), st, models.Long, 250)
	assert.Equal(t, a, b)
}

func TestBookReservationHoldsCapUnderConcurrency(t *testing.T) {
	lim := testLimits()
	book := NewBook(lim, nil, 10000, nil, nil)

	const attempts = 32
	results := make(chan Decision, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			results <- book.Reserve(models.Long, 100, time.Now())
		}()
	}

	approved := 0
	for i := 0; i < attempts; i++ {
		if dec := <-results; dec.Approved {
			approved++
		}
	}
	assert.Equal(t, lim.MaxPositions, approved, "reservations must never overshoot the cap")
}

func TestBookCloseUpdatesAggregates(t *testing.T) {
	book := NewBook(testLimits(), nil, 10000, nil, nil)
	now := time.Now()

	dec := book.Reserve(models.Long, 100, now)
	require.True(t, dec.Approved)
	book.CommitOpen(now)
	assert.Equal(t, 1, book.Snapshot().OpenPositions)

	st := book.ApplyClose(-200, now)
	assert.Equal(t, 0, st.OpenPositions)
	assert.InDelta(t, 9800, st.Equity, 1e-9)
	assert.InDelta(t, -200, st.DailyPnL, 1e-9)
	assert.InDelta(t, 2.0, st.DrawdownPct, 1e-9)
	assert.InDelta(t, 10000, st.PeakEquity, 1e-9)
}

func TestBookReleaseFreesReservation(t *testing.T) {
	lim := testLimits()
	lim.MaxPositions = 1
	book := NewBook(lim, nil, 10000, nil, nil)
	now := time.Now()

	require.True(t, book.Reserve(models.Long, 100, now).Approved)
	assert.False(t, book.Reserve(models.Long, 100, now).Approved)

	book.Release()
	assert.True(t, book.Reserve(models.Long, 100, now).Approved)
}

func TestBookDailyRollover(t *testing.T) {
	book := NewBook(testLimits(), nil, 10000, nil, nil)
	d0 := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	book.Reserve(models.Long, 100, d0)
	book.CommitOpen(d0)
	book.ApplyClose(-400, d0)
	require.InDelta(t, -400, book.Snapshot().DailyPnL, 1e-9)

	// Next UTC day: the daily figure resets, equity does not.
	d1 := d0.Add(6 * time.Hour)
	dec := book.Reserve(models.Long, 100, d1)
	assert.True(t, dec.Approved)
	st := book.Snapshot()
	assert.Zero(t, st.DailyPnL)
	assert.InDelta(t, 9600, st.Equity, 1e-9)
}
