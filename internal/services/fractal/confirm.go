package fractal

import (
	"math"

	"Fractrade/internal/domain/models"
)

// ConfirmationFilter turns candidates into confirmed fractals. A candidate
// must (a) clear the minimum strength, measured against the opposite window
// extremum, and (b) survive the confirmation window: none of the
// confirmBars closes following the pivot bar may breach the pivot level by
// the strength margin in the invalidating direction. Invalidation is
// permanent; confirmation is irreversible.
//
// One filter instance owns one series; windows are index ranges over the
// buffer, never timers, so backtest replays are deterministic.
type ConfirmationFilter struct {
	minStrength float64 // percent
	confirmBars int

	pending map[int]pendingCandidate
	decided map[int]struct{} // indices already confirmed or discarded
}

type pendingCandidate struct {
	cand     models.CandidateFractal
	strength float64
}

func NewConfirmationFilter(minStrength float64, confirmBars int) *ConfirmationFilter {
	if confirmBars < 1 {
		confirmBars = 1
	}
	return &ConfirmationFilter{
		minStrength: minStrength,
		confirmBars: confirmBars,
		pending:     make(map[int]pendingCandidate),
		decided:     make(map[int]struct{}),
	}
}

// Submit registers a candidate. At most one candidate per bar index is ever
// tracked, so replayed detections are no-ops. Candidates below the strength
// floor are discarded immediately.
func (f *ConfirmationFilter) Submit(c models.CandidateFractal, opposite float64) {
	if _, ok := f.pending[c.BarIndex]; ok {
		return
	}
	if _, ok := f.decided[c.BarIndex]; ok {
		return
	}
	strength := 0.0
	if c.Price != 0 {
		strength = math.Abs(c.Price-opposite) / c.Price * 100
	}
	if strength < f.minStrength {
		f.decided[c.BarIndex] = struct{}{}
		return
	}
	f.pending[c.BarIndex] = pendingCandidate{cand: c, strength: strength}
}

// Evaluate walks every pending candidate against the buffer and resolves the
// ones whose confirmation window is complete or breached. It returns the
// fractals confirmed by this pass and the candidates invalidated by it.
func (f *ConfirmationFilter) Evaluate(b *Buffer) (confirmed []models.ConfirmedFractal, invalidated []models.CandidateFractal) {
	for idx, p := range f.pending {
		end := idx + f.confirmBars
		if end > b.LastIndex() {
			end = b.LastIndex()
		}

		if f.breached(b, p.cand, idx+1, end) {
			delete(f.pending, idx)
			f.decided[idx] = struct{}{}
			invalidated = append(invalidated, p.cand)
			continue
		}
		if idx+f.confirmBars > b.LastIndex() {
			continue // window not yet complete
		}

		confirmBar, ok := b.At(idx + f.confirmBars)
		if !ok {
			// window scrolled out of the buffer before completion; drop
			delete(f.pending, idx)
			f.decided[idx] = struct{}{}
			continue
		}
		delete(f.pending, idx)
		f.decided[idx] = struct{}{}
		confirmed = append(confirmed, models.ConfirmedFractal{
			CandidateFractal: p.cand,
			Strength:         p.strength,
			ConfirmedAt:      idx + f.confirmBars,
			ConfirmedTime:    confirmBar.Timestamp,
		})
	}
	f.prune(b.FirstIndex())
	return confirmed, invalidated
}

// breached reports whether any close in [from, to] crosses the candidate's
// level by the strength margin in the invalidating direction.
func (f *ConfirmationFilter) breached(b *Buffer, c models.CandidateFractal, from, to int) bool {
	margin := c.Price * f.minStrength / 100
	for j := from; j <= to; j++ {
		bar, ok := b.At(j)
		if !ok {
			continue
		}
		switch c.Type {
		case models.FractalHigh:
			if bar.Close >= c.Price+margin {
				return true
			}
		case models.FractalLow:
			if bar.Close <= c.Price-margin {
				return true
			}
		}
	}
	return false
}

// PendingCount returns the number of unresolved candidates.
func (f *ConfirmationFilter) PendingCount() int { return len(f.pending) }

func (f *ConfirmationFilter) prune(firstIndex int) {
	for idx := range f.decided {
		if idx < firstIndex {
			delete(f.decided, idx)
		}
	}
}
