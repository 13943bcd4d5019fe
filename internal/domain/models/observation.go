package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CompositeObservation is the agreement of confirmed fractals across two or
// more timeframes on the same symbol and direction, within a bounded
// alignment window.
type CompositeObservation struct {
	ID           string                      `json:"id"`
	Symbol       string                      `json:"symbol"`
	Direction    Direction                   `json:"direction"`
	Contributing map[string]ConfirmedFractal `json:"contributing"` // timeframe -> fractal
	FormedAt     time.Time                   `json:"formed_at"`
}

// TimeframeCount returns the number of contributing timeframes.
func (o *CompositeObservation) TimeframeCount() int {
	return len(o.Contributing)
}

// ObservationID builds a deterministic identity from the contributing
// fractals, so re-deriving the same observation yields the same ID and the
// scorer can deduplicate emissions.
func ObservationID(symbol string, dir Direction, contributing map[string]ConfirmedFractal) string {
	parts := make([]string, 0, len(contributing))
	for tf, f := range contributing {
		parts = append(parts, fmt.Sprintf("%s:%d", tf, f.BarIndex))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s|%s|%s", symbol, dir, strings.Join(parts, ","))
}
