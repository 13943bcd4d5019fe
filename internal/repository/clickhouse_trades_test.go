package repository

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
)

// replayScanner feeds previously bound column values back through Scan, so
// the Nullable-column mapping can be checked without a database.
type replayScanner struct {
	vals []interface{}
}

func (r replayScanner) Scan(dest ...interface{}) error {
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan arity %d, bound %d", len(dest), len(r.vals))
	}
	for i, d := range dest {
		switch v := r.vals[i].(type) {
		case string:
			*d.(*string) = v
		case float64:
			*d.(*float64) = v
		case time.Time:
			*d.(*time.Time) = v
		case sql.NullFloat64:
			*d.(*sql.NullFloat64) = v
		case sql.NullString:
			*d.(*sql.NullString) = v
		case sql.NullTime:
			*d.(*sql.NullTime) = v
		default:
			return fmt.Errorf("unhandled column type %T", v)
		}
	}
	return nil
}

func tradeRoundTrip(t *testing.T, tr *models.Trade) *models.Trade {
	t.Helper()
	got, err := scanTrade(replayScanner{vals: tradeArgs(tr)})
	require.NoError(t, err)
	return got
}

func TestTradeColumnsRoundTripClosed(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := &models.Trade{
		ID:         "9f1c2a",
		Symbol:     "BTC/USDT",
		Side:       models.Long,
		EntryPrice: 50000,
		StopLoss:   49000,
		TakeProfit: 52000,
		Size:       0.4,
		SignalID:   "sig-1",
		Status:     models.TradeClosed,
		CreatedAt:  created,
		Fill: &models.TradeFill{
			Price:   50010,
			OrderID: "ord-7",
			Time:    created.Add(2 * time.Second),
		},
		Closure: &models.TradeClosure{
			Price:  52000,
			Reason: models.CloseTakeProfit,
			PnL:    796,
			Time:   created.Add(3 * time.Hour),
		},
	}

	require.Equal(t, tr, tradeRoundTrip(t, tr))
}

func TestTradeColumnsRoundTripCancelled(t *testing.T) {
	tr := &models.Trade{
		ID:           "b07e11",
		Symbol:       "ETH/USDT",
		Side:         models.Short,
		EntryPrice:   3000,
		StopLoss:     3060,
		TakeProfit:   2880,
		Size:         1.5,
		SignalID:     "sig-2",
		Status:       models.TradeCancelled,
		CreatedAt:    time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
		CancelReason: "gateway rejected: insufficient margin",
	}

	got := tradeRoundTrip(t, tr)
	require.Equal(t, tr, got)
	require.Nil(t, got.Fill)
	require.Nil(t, got.Closure)
}

func TestTradeColumnsRoundTripPending(t *testing.T) {
	tr := &models.Trade{
		ID:         "c4d9",
		Symbol:     "BTC/USDT",
		Side:       models.Long,
		EntryPrice: 50000,
		StopLoss:   49000,
		TakeProfit: 52000,
		Size:       0.2,
		SignalID:   "sig-3",
		Status:     models.TradePending,
		CreatedAt:  time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
	}

	require.Equal(t, tr, tradeRoundTrip(t, tr))
}
