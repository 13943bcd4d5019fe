package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
)

func observation(symbol string, dir models.Direction, tfs ...string) *models.CompositeObservation {
	contributing := make(map[string]models.ConfirmedFractal, len(tfs))
	for i, tf := range tfs {
		typ := models.FractalLow
		if dir == models.Bearish {
			typ = models.FractalHigh
		}
		contributing[tf] = confirmedAt(symbol, tf, typ, 10+i, time.Now())
	}
	return &models.CompositeObservation{
		ID:           models.ObservationID(symbol, dir, contributing),
		Symbol:       symbol,
		Direction:    dir,
		Contributing: contributing,
	}
}

func TestScoreWeightsByTimeframeHours(t *testing.T) {
	// Weights: 1h=1, 4h=4, 1d=24; total 29.
	s := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h, drepo.TF1d}, 0.1)
	now := time.Now()

	sig := s.Score(observation("BTC/USDT", models.Bullish, "1h", "4h"), 50000, now)
	require.NotNil(t, sig)
	assert.InDelta(t, 5.0/29.0, sig.Score, 1e-9)
	assert.Equal(t, models.Bullish, sig.Direction)
	assert.Equal(t, 50000.0, sig.RefPrice)
}

func TestScoreBelowThresholdReturnsNil(t *testing.T) {
	// 1h+4h over [1h 4h 1d] scores 5/29, well under 0.5.
	s := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h, drepo.TF1d}, 0.5)
	sig := s.Score(observation("BTC/USDT", models.Bullish, "1h", "4h"), 50000, time.Now())
	assert.Nil(t, sig)
}

func TestScoreExactThresholdNotEmitted(t *testing.T) {
	// 4h over [1h 4h] scores 4/5 exactly; emission requires strictly above.
	s := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h}, 0.8)
	sig := s.Score(observation("BTC/USDT", models.Bullish, "4h", "1h"), 50000, time.Now())
	require.NotNil(t, sig, "full agreement scores 1.0 and clears 0.8")

	s2 := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h}, 1.0)
	assert.Nil(t, s2.Score(observation("ETH/USDT", models.Bullish, "4h", "1h"), 50000, time.Now()))
}

func TestScoreDeduplicatesByObservationID(t *testing.T) {
	s := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h}, 0.5)
	obs := observation("BTC/USDT", models.Bullish, "1h", "4h")

	first := s.Score(obs, 50000, time.Now())
	require.NotNil(t, first)
	assert.Nil(t, s.Score(obs, 50100, time.Now()), "same observation identity emits once")
}

func TestScoreEmittedSetPrunes(t *testing.T) {
	s := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h}, 0.5)
	obs := observation("BTC/USDT", models.Bullish, "1h", "4h")
	t0 := time.Now()

	require.NotNil(t, s.Score(obs, 50000, t0))
	// After the retention window a fresh emission of the same identity is
	// allowed again.
	sig := s.Score(obs, 50000, t0.Add(emittedRetention+2*time.Hour))
	require.NotNil(t, sig)
}

func TestRecentNewestFirstAndFiltered(t *testing.T) {
	s := NewScorer([]drepo.Timeframe{drepo.TF1h, drepo.TF4h}, 0.5)
	now := time.Now()

	require.NotNil(t, s.Score(observation("BTC/USDT", models.Bullish, "1h", "4h"), 100, now))
	require.NotNil(t, s.Score(observation("ETH/USDT", models.Bearish, "1h", "4h"), 200, now))

	all := s.Recent("", 10)
	require.Len(t, all, 2)
	assert.Equal(t, "ETH/USDT", all[0].Symbol, "newest first")

	btc := s.Recent("BTC/USDT", 10)
	require.Len(t, btc, 1)
	assert.Equal(t, "BTC/USDT", btc[0].Symbol)

	assert.Len(t, s.Recent("", 1), 1)
}
