package usecase

import (
	"sync"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
)

// Aggregator correlates confirmed fractals for one symbol across the
// configured timeframes into composite observations. It keeps only the most
// recent confirmed fractal per (symbol, timeframe); a new fractal of the
// opposite direction supersedes the old one and implicitly retires any
// observation it contributed to.
type Aggregator struct {
	timeframes []drepo.Timeframe

	mu     sync.RWMutex
	latest map[string]map[drepo.Timeframe]models.ConfirmedFractal
}

func NewAggregator(timeframes []drepo.Timeframe) *Aggregator {
	return &Aggregator{
		timeframes: timeframes,
		latest:     make(map[string]map[drepo.Timeframe]models.ConfirmedFractal),
	}
}

// Observe records a newly confirmed fractal and returns the composite
// observation it completes, if agreement across >= 2 timeframes exists
// within the alignment window.
func (a *Aggregator) Observe(f models.ConfirmedFractal) *models.CompositeObservation {
	symbol := f.Series.Symbol
	tf := drepo.NormalizeTimeframe(f.Series.Timeframe)

	a.mu.Lock()
	defer a.mu.Unlock()

	byTF, ok := a.latest[symbol]
	if !ok {
		byTF = make(map[drepo.Timeframe]models.ConfirmedFractal, len(a.timeframes))
		a.latest[symbol] = byTF
	}
	byTF[tf] = f

	dir := f.Direction()
	contributing := map[string]models.ConfirmedFractal{string(tf): f}
	for otherTF, other := range byTF {
		if otherTF == tf || other.Direction() != dir {
			continue
		}
		if withinAlignment(f, tf, other, otherTF) {
			contributing[string(otherTF)] = other
		}
	}
	if len(contributing) < 2 {
		return nil
	}

	return &models.CompositeObservation{
		ID:           models.ObservationID(symbol, dir, contributing),
		Symbol:       symbol,
		Direction:    dir,
		Contributing: contributing,
		FormedAt:     f.ConfirmedTime,
	}
}

// Latest returns a copy of the freshest confirmed fractal per timeframe for
// a symbol, for API consumption.
func (a *Aggregator) Latest(symbol string) map[string]models.ConfirmedFractal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]models.ConfirmedFractal, len(a.latest[symbol]))
	for tf, f := range a.latest[symbol] {
		out[string(tf)] = f
	}
	return out
}

// withinAlignment checks that two confirmation timestamps fall within the
// larger of the two timeframes' bar durations.
func withinAlignment(a models.ConfirmedFractal, atf drepo.Timeframe, b models.ConfirmedFractal, btf drepo.Timeframe) bool {
	window := atf.Duration()
	if btf.Duration() > window {
		window = btf.Duration()
	}
	delta := a.ConfirmedTime.Sub(b.ConfirmedTime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}
