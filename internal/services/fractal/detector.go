package fractal

import (
	"fmt"

	"Fractrade/internal/domain/models"
)

// Detector finds pivot highs and lows using the symmetric window rule: bar i
// is a HIGH candidate iff its high is strictly greater than every other high
// in [i-wing, i+wing]; symmetric for lows. Plateau ties yield nothing.
// Detection is a pure function of the buffer, so replays are idempotent.
type Detector struct {
	wing int
}

// NewDetector builds a detector from the configured period (odd, >= 3).
func NewDetector(period int) (*Detector, error) {
	if period < 3 || period%2 == 0 {
		return nil, fmt.Errorf("fractal period must be an odd integer >= 3, got %d", period)
	}
	return &Detector{wing: period / 2}, nil
}

// Wing returns the number of bars required on each side of a pivot.
func (d *Detector) Wing() int { return d.wing }

// Detect scans the whole buffer and returns every candidate. A candidate at
// index i is only emitted once i+wing bars exist.
func (d *Detector) Detect(b *Buffer) []models.CandidateFractal {
	var out []models.CandidateFractal
	for i := b.FirstIndex() + d.wing; i <= b.LastIndex()-d.wing; i++ {
		if c, ok := d.DetectAt(b, i); ok {
			out = append(out, c)
		}
	}
	return out
}

// DetectAt classifies the bar at absolute index i. It returns false when the
// window is incomplete, when the bar is no extremum, or when the window's
// timestamps are not strictly increasing (the affected window is skipped).
func (d *Detector) DetectAt(b *Buffer, i int) (models.CandidateFractal, bool) {
	if i-d.wing < b.FirstIndex() || i+d.wing > b.LastIndex() {
		return models.CandidateFractal{}, false
	}
	if !d.windowOrdered(b, i) {
		return models.CandidateFractal{}, false
	}

	pivot, _ := b.At(i)
	isHigh, isLow := true, true
	for j := i - d.wing; j <= i+d.wing; j++ {
		if j == i {
			continue
		}
		bar, _ := b.At(j)
		if bar.High >= pivot.High {
			isHigh = false
		}
		if bar.Low <= pivot.Low {
			isLow = false
		}
		if !isHigh && !isLow {
			return models.CandidateFractal{}, false
		}
	}

	c := models.CandidateFractal{
		Series:     b.Key(),
		BarIndex:   i,
		DetectedAt: pivot.Timestamp,
	}
	switch {
	case isHigh:
		c.Type = models.FractalHigh
		c.Price = pivot.High
	case isLow:
		c.Type = models.FractalLow
		c.Price = pivot.Low
	default:
		return models.CandidateFractal{}, false
	}
	return c, true
}

// windowOrdered checks strict timestamp monotonicity over [i-wing, i+wing].
// The buffer enforces ordering on append; this guards replayed or patched
// windows.
func (d *Detector) windowOrdered(b *Buffer, i int) bool {
	prev, _ := b.At(i - d.wing)
	for j := i - d.wing + 1; j <= i+d.wing; j++ {
		cur, _ := b.At(j)
		if !cur.Timestamp.After(prev.Timestamp) {
			return false
		}
		prev = cur
	}
	return true
}

// OppositeExtremum returns the strength reference for a candidate: the
// highest high in the window for a LOW pivot, the lowest low for a HIGH.
func (d *Detector) OppositeExtremum(b *Buffer, c models.CandidateFractal) (float64, bool) {
	if c.BarIndex-d.wing < b.FirstIndex() || c.BarIndex+d.wing > b.LastIndex() {
		return 0, false
	}
	first, _ := b.At(c.BarIndex - d.wing)
	opp := first.Low
	if c.Type == models.FractalLow {
		opp = first.High
	}
	for j := c.BarIndex - d.wing + 1; j <= c.BarIndex+d.wing; j++ {
		bar, _ := b.At(j)
		if c.Type == models.FractalLow {
			if bar.High > opp {
				opp = bar.High
			}
		} else if bar.Low < opp {
			opp = bar.Low
		}
	}
	return opp, true
}
