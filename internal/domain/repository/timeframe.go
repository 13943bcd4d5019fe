package repository

import "time"

// Timeframe represents a candle resolution bucket.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var durations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := durations[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe converts a raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration returns the bar duration of the timeframe (zero if unknown).
func (tf Timeframe) Duration() time.Duration { return durations[tf] }

// Weight is the aggregation weight of the timeframe, proportional to its bar
// duration. Higher timeframes dominate composite scoring.
func (tf Timeframe) Weight() float64 { return durations[tf].Hours() }

// ParseTimeframes converts raw labels to timeframes, dropping unknown ones.
func ParseTimeframes(raw []string) []Timeframe {
	out := make([]Timeframe, 0, len(raw))
	for _, s := range raw {
		if tf := Timeframe(s); IsValidTimeframe(tf) {
			out = append(out, tf)
		}
	}
	return out
}
