package models

import "time"

// PriceBar represents a single OHLCV candle within a (symbol, timeframe) series.
type PriceBar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"` // open time of the bar
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// SeriesKey identifies one ordered bar series.
type SeriesKey struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

func (k SeriesKey) String() string {
	return k.Symbol + "/" + k.Timeframe
}
