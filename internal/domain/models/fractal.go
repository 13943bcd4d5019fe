package models

import "time"

// FractalType distinguishes pivot highs from pivot lows.
type FractalType string

const (
	FractalHigh FractalType = "HIGH"
	FractalLow  FractalType = "LOW"
)

// Direction is the directional bias a fractal (or a set of fractals) implies.
// A confirmed low is treated as support, a confirmed high as resistance.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// CandidateFractal is a pivot detected by the symmetric window rule but not
// yet validated. Candidates are ephemeral: they are either confirmed or
// discarded, never stored.
type CandidateFractal struct {
	Series     SeriesKey   `json:"series"`
	BarIndex   int         `json:"bar_index"` // absolute index within the series
	Type       FractalType `json:"type"`
	Price      float64     `json:"price"`
	DetectedAt time.Time   `json:"detected_at"` // timestamp of the pivot bar
}

// ConfirmedFractal is a candidate that passed the strength check and survived
// its confirmation window. Immutable once created.
type ConfirmedFractal struct {
	CandidateFractal
	Strength      float64   `json:"strength"`     // percent distance to the opposite window extremum
	ConfirmedAt   int       `json:"confirmed_at"` // bar index at which confirmation completed
	ConfirmedTime time.Time `json:"confirmed_time"`
}

// Direction maps the pivot type to its bias: lows are bullish, highs bearish.
func (f ConfirmedFractal) Direction() Direction {
	if f.Type == FractalLow {
		return Bullish
	}
	return Bearish
}
