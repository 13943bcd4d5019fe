package usecase

import (
	"sync"
	"time"

	"Fractrade/internal/domain/models"
	drepo "Fractrade/internal/domain/repository"
)

// Scorer converts composite observations into normalized signals. The score
// is the weighted share of contributing timeframes over all configured
// weights; emission happens once per observation identity.
type Scorer struct {
	weights     map[drepo.Timeframe]float64
	totalWeight float64
	threshold   float64

	mu      sync.Mutex
	emitted map[string]time.Time
	recent  []*models.Signal
}

const (
	emittedRetention = 48 * time.Hour
	recentSignalsCap = 256
)

func NewScorer(timeframes []drepo.Timeframe, threshold float64) *Scorer {
	weights := make(map[drepo.Timeframe]float64, len(timeframes))
	total := 0.0
	for _, tf := range timeframes {
		w := tf.Weight()
		weights[tf] = w
		total += w
	}
	return &Scorer{
		weights:     weights,
		totalWeight: total,
		threshold:   threshold,
		emitted:     make(map[string]time.Time),
	}
}

// Score evaluates an observation. It returns nil when the score does not
// clear the activation threshold or when a signal for this exact observation
// was already emitted.
func (s *Scorer) Score(obs *models.CompositeObservation, refPrice float64, now time.Time) *models.Signal {
	if obs == nil || s.totalWeight <= 0 {
		return nil
	}

	sum := 0.0
	for tf := range obs.Contributing {
		sum += s.weights[drepo.Timeframe(tf)]
	}
	score := sum / s.totalWeight
	if score > 1 {
		score = 1
	}
	if score <= s.threshold {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	if _, ok := s.emitted[obs.ID]; ok {
		return nil
	}
	s.emitted[obs.ID] = now

	sig := &models.Signal{
		ID:          obs.ID,
		Symbol:      obs.Symbol,
		Direction:   obs.Direction,
		Score:       score,
		RefPrice:    refPrice,
		Observation: obs,
		CreatedAt:   now,
	}
	s.recent = append(s.recent, sig)
	if len(s.recent) > recentSignalsCap {
		s.recent = s.recent[len(s.recent)-recentSignalsCap:]
	}
	return sig
}

// Recent returns the latest emitted signals, newest first, optionally
// filtered by symbol.
func (s *Scorer) Recent(symbol string, limit int) []*models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Signal, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		sig := s.recent[i]
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		out = append(out, sig)
	}
	return out
}

func (s *Scorer) pruneLocked(now time.Time) {
	for id, at := range s.emitted {
		if now.Sub(at) > emittedRetention {
			delete(s.emitted, id)
		}
	}
}
