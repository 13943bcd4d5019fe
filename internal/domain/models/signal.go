package models

import "time"

// Signal is a normalized directional trading signal produced from a
// qualifying composite observation. One signal per observation identity.
type Signal struct {
	ID          string                `json:"id"` // observation identity
	Symbol      string                `json:"symbol"`
	Direction   Direction             `json:"direction"`
	Score       float64               `json:"score"` // [0,1]
	RefPrice    float64               `json:"ref_price"` // last close at emission, entry reference
	Observation *CompositeObservation `json:"observation,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Side maps the signal direction to the trade side it proposes.
func (s *Signal) Side() TradeSide {
	if s.Direction == Bullish {
		return Long
	}
	return Short
}
