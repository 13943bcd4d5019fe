package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Trades and risk snapshots travel through the persistence queue and Redis
// as JSON; a snapshot reloaded from either must match field for field.

func TestTradeJSONRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := map[string]*Trade{
		"closed": {
			ID:         "9f1c2a",
			Symbol:     "BTC/USDT",
			Side:       Long,
			EntryPrice: 50000,
			StopLoss:   49000,
			TakeProfit: 52000,
			Size:       0.4,
			SignalID:   "sig-1",
			Status:     TradeClosed,
			CreatedAt:  created,
			Fill:       &TradeFill{Price: 50010, OrderID: "ord-7", Time: created.Add(time.Second)},
			Closure:    &TradeClosure{Price: 49000, Reason: CloseStopLoss, PnL: -404, Time: created.Add(time.Hour)},
		},
		"cancelled": {
			ID:           "b07e11",
			Symbol:       "ETH/USDT",
			Side:         Short,
			EntryPrice:   3000,
			StopLoss:     3060,
			TakeProfit:   2880,
			Size:         1.5,
			SignalID:     "sig-2",
			Status:       TradeCancelled,
			CreatedAt:    created,
			CancelReason: "execution timeout",
		},
	}

	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(tr)
			require.NoError(t, err)

			var got Trade
			require.NoError(t, json.Unmarshal(data, &got))
			require.Equal(t, *tr, got)
		})
	}
}

func TestRiskStateJSONRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 18, 45, 0, 0, time.UTC)
	st := &RiskState{
		Equity:        10423.57,
		DailyPnL:      -120.4,
		PeakEquity:    10800,
		DrawdownPct:   3.48,
		OpenPositions: 2,
		Day:           now.Truncate(24 * time.Hour),
		UpdatedAt:     now,
	}

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var got RiskState
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, *st, got)
}
