package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
)

func confirmedAt(symbol, tf string, typ models.FractalType, barIndex int, confirmed time.Time) models.ConfirmedFractal {
	return models.ConfirmedFractal{
		CandidateFractal: models.CandidateFractal{
			Series:   models.SeriesKey{Symbol: symbol, Timeframe: tf},
			BarIndex: barIndex,
			Type:     typ,
			Price:    100,
		},
		Strength:      2.0,
		ConfirmedTime: confirmed,
	}
}

func TestObserveNeedsTwoTimeframes(t *testing.T) {
	a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	obs := a.Observe(confirmedAt("BTC/USDT", "1h", models.FractalLow, 10, t0))
	assert.Nil(t, obs, "a single timeframe never forms an observation")
}

func TestObserveAlignsSameDirection(t *testing.T) {
	a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalLow, 5, t0)))

	// Second low within the 4h alignment window completes the observation.
	obs := a.Observe(confirmedAt("BTC/USDT", "1h", models.FractalLow, 20, t0.Add(3*time.Hour)))
	require.NotNil(t, obs)
	assert.Equal(t, "BTC/USDT", obs.Symbol)
	assert.Equal(t, models.Bullish, obs.Direction)
	assert.Equal(t, 2, obs.TimeframeCount())
}

func TestObserveRejectsOppositeDirections(t *testing.T) {
	a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalHigh, 5, t0)))
	obs := a.Observe(confirmedAt("BTC/USDT", "1h", models.FractalLow, 20, t0.Add(time.Hour)))
	assert.Nil(t, obs, "a high and a low never agree")
}

func TestObserveRejectsStaleAlignment(t *testing.T) {
	a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalLow, 5, t0)))

	// The window is the larger timeframe's bar duration (4h); 5h is too late.
	obs := a.Observe(confirmedAt("BTC/USDT", "1h", models.FractalLow, 20, t0.Add(5*time.Hour)))
	assert.Nil(t, obs)
}

func TestObserveOppositeFractalSupersedes(t *testing.T) {
	a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalLow, 5, t0)))
	// A newer high on the same timeframe replaces the low.
	require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalHigh, 6, t0.Add(time.Hour))))

	obs := a.Observe(confirmedAt("BTC/USDT", "1h", models.FractalLow, 20, t0.Add(2*time.Hour)))
	assert.Nil(t, obs, "the superseded low no longer contributes")
}

func TestObserveKeepsSymbolsIndependent(t *testing.T) {
	a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalLow, 5, t0)))
	obs := a.Observe(confirmedAt("ETH/USDT", "1h", models.FractalLow, 20, t0.Add(time.Hour)))
	assert.Nil(t, obs, "fractals on different symbols never align")
}

func TestObserveDeterministicID(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	build := func() *models.CompositeObservation {
		a := NewAggregator([]drepo.Timeframe{drepo.TF1h, drepo.TF4h})
		require.Nil(t, a.Observe(confirmedAt("BTC/USDT", "4h", models.FractalLow, 5, t0)))
		return a.Observe(confirmedAt("BTC/USDT", "1h", models.FractalLow, 20, t0.Add(time.Hour)))
	}

	first := build()
	second := build()
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}
