package fractal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
)

// seriesFrom builds a buffer where bar i has the given low and high=low+spread.
func seriesFrom(t *testing.T, lows, highs []float64) *Buffer {
	t.Helper()
	require.Equal(t, len(lows), len(highs))
	b := NewBuffer(testKey, len(lows)+10)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range lows {
		mid := (lows[i] + highs[i]) / 2
		require.NoError(t, b.Append(barAt(t0.Add(time.Duration(i)*time.Hour), mid, highs[i], lows[i], mid)))
	}
	return b
}

func TestNewDetectorRejectsBadPeriod(t *testing.T) {
	for _, period := range []int{0, 1, 2, 4, 6} {
		_, err := NewDetector(period)
		assert.Error(t, err, "period %d", period)
	}
	d, err := NewDetector(5)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Wing())
}

func TestDetectLowPivot(t *testing.T) {
	// Lows [10 9 8 9 10] with wing=2: only index 2 is a LOW candidate.
	b := seriesFrom(t,
		[]float64{10, 9, 8, 9, 10},
		[]float64{11, 10, 9, 10, 11},
	)
	d, err := NewDetector(5)
	require.NoError(t, err)

	cands := d.Detect(b)
	require.Len(t, cands, 1)
	assert.Equal(t, 2, cands[0].BarIndex)
	assert.Equal(t, models.FractalLow, cands[0].Type)
	assert.Equal(t, 8.0, cands[0].Price)
}

func TestDetectHighPivot(t *testing.T) {
	b := seriesFrom(t,
		[]float64{10, 11, 12, 11, 10},
		[]float64{11, 12, 13, 12, 11},
	)
	d, _ := NewDetector(5)

	cands := d.Detect(b)
	require.Len(t, cands, 1)
	assert.Equal(t, 2, cands[0].BarIndex)
	assert.Equal(t, models.FractalHigh, cands[0].Type)
	assert.Equal(t, 13.0, cands[0].Price)
}

func TestDetectPlateauYieldsNothing(t *testing.T) {
	// Ties are not strict extrema.
	b := seriesFrom(t,
		[]float64{5, 4, 4, 4, 5},
		[]float64{6, 5, 5, 5, 6},
	)
	d, _ := NewDetector(5)
	assert.Empty(t, d.Detect(b))
}

func TestDetectInsufficientBars(t *testing.T) {
	b := seriesFrom(t,
		[]float64{10, 9, 8},
		[]float64{11, 10, 9},
	)
	d, _ := NewDetector(5)
	assert.Empty(t, d.Detect(b), "no candidate until wing bars exist on both sides")
}

func TestDetectIdempotent(t *testing.T) {
	b := seriesFrom(t,
		[]float64{10, 9, 8, 9, 10, 9, 8.5, 9, 10},
		[]float64{11, 10, 9, 10, 11, 10, 9.5, 10, 11},
	)
	d, _ := NewDetector(5)

	first := d.Detect(b)
	second := d.Detect(b)
	assert.Equal(t, first, second, "re-running detection over the same buffer must yield the identical set")
}

func TestOppositeExtremum(t *testing.T) {
	b := seriesFrom(t,
		[]float64{10, 9, 8, 9, 10},
		[]float64{11, 10, 9, 10, 11},
	)
	d, _ := NewDetector(5)
	cands := d.Detect(b)
	require.Len(t, cands, 1)

	opp, ok := d.OppositeExtremum(b, cands[0])
	require.True(t, ok)
	assert.Equal(t, 11.0, opp, "LOW pivot references the highest high in its window")
}
