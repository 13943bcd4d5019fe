package fractal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Fractrade/internal/domain/models"
)

// lowCandidateAt builds a buffer whose bar at index 2 is a LOW pivot at
// price 100, then appends the given closes one per bar.
func lowCandidateAt(t *testing.T, closes ...float64) (*Buffer, models.CandidateFractal) {
	t.Helper()
	b := NewBuffer(testKey, 50)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lows := []float64{104, 102, 100, 102, 104}
	for i, lo := range lows {
		require.NoError(t, b.Append(barAt(t0.Add(time.Duration(i)*time.Hour), lo+1, lo+3, lo, lo+1)))
	}
	for i, c := range closes {
		ts := t0.Add(time.Duration(len(lows)+i) * time.Hour)
		require.NoError(t, b.Append(barAt(ts, c, c+1, c-1, c)))
	}
	cand := models.CandidateFractal{
		Series:     testKey,
		BarIndex:   2,
		Type:       models.FractalLow,
		Price:      100,
		DetectedAt: t0.Add(2 * time.Hour),
	}
	return b, cand
}

func TestConfirmSurvivesWindow(t *testing.T) {
	// LOW at 100, strength floor 1.5%: closes above 98.5 cannot invalidate.
	b, cand := lowCandidateAt(t)
	f := NewConfirmationFilter(1.5, 2)
	f.Submit(cand, 107) // 7% strength, clears the floor

	confirmed, invalidated := f.Evaluate(b)
	require.Len(t, confirmed, 1)
	assert.Empty(t, invalidated)
	assert.Equal(t, 4, confirmed[0].ConfirmedAt, "window is the two bars after the pivot")
	assert.InDelta(t, 7.0, confirmed[0].Strength, 1e-9)
}

func TestInvalidatingCloseDiscardsPermanently(t *testing.T) {
	// A close at 98 breaches 100*(1-1.5%) = 98.5 inside the window.
	b, cand := lowCandidateAt(t)
	f := NewConfirmationFilter(1.5, 4)
	f.Submit(cand, 107)

	confirmed, invalidated := f.Evaluate(b)
	assert.Empty(t, confirmed)
	assert.Empty(t, invalidated, "window still open, closes 101..105 are harmless")

	t5 := time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)
	require.NoError(t, b.Append(barAt(t5, 99, 100, 97.5, 98)))
	confirmed, invalidated = f.Evaluate(b)
	assert.Empty(t, confirmed)
	require.Len(t, invalidated, 1)

	// The discarded candidate can never come back.
	f.Submit(cand, 107)
	assert.Zero(t, f.PendingCount())
}

func TestCloseInsideMarginDoesNotInvalidate(t *testing.T) {
	// Close at 99 is below the pivot but inside the 1.5% margin.
	b, cand := lowCandidateAt(t)
	f := NewConfirmationFilter(1.5, 3)
	f.Submit(cand, 107)

	t5 := time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)
	require.NoError(t, b.Append(barAt(t5, 99.5, 100, 98.6, 99)))
	confirmed, invalidated := f.Evaluate(b)
	require.Len(t, confirmed, 1)
	assert.Empty(t, invalidated)
}

func TestWeakCandidateDiscardedOnSubmit(t *testing.T) {
	b, cand := lowCandidateAt(t)
	f := NewConfirmationFilter(1.5, 2)
	f.Submit(cand, 101) // 1% strength, below the floor

	confirmed, invalidated := f.Evaluate(b)
	assert.Empty(t, confirmed)
	assert.Empty(t, invalidated)
	assert.Zero(t, f.PendingCount())
}

func TestSubmitIdempotentPerIndex(t *testing.T) {
	_, cand := lowCandidateAt(t)
	f := NewConfirmationFilter(1.5, 2)
	f.Submit(cand, 107)
	f.Submit(cand, 107)
	assert.Equal(t, 1, f.PendingCount(), "at most one candidate per bar index")
}
