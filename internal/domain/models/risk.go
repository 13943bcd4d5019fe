package models

import "time"

// RiskState is the process-wide risk aggregate. It has a single logical
// owner (risk.Book); everything else sees copies.
type RiskState struct {
	Equity        float64   `json:"equity"`
	DailyPnL      float64   `json:"daily_pnl"`
	PeakEquity    float64   `json:"peak_equity"`
	DrawdownPct   float64   `json:"drawdown_pct"`
	OpenPositions int       `json:"open_positions"`
	Day           time.Time `json:"day"` // UTC day the DailyPnL figure belongs to
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewRiskState returns a fresh state seeded with the starting equity.
func NewRiskState(equity float64, now time.Time) *RiskState {
	return &RiskState{
		Equity:     equity,
		PeakEquity: equity,
		Day:        now.UTC().Truncate(24 * time.Hour),
		UpdatedAt:  now,
	}
}

// RollDay zeroes the daily PnL when the UTC day has changed.
func (s *RiskState) RollDay(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if day.After(s.Day) {
		s.Day = day
		s.DailyPnL = 0
	}
}

// ApplyPnL books realized PnL and recomputes peak equity and drawdown.
func (s *RiskState) ApplyPnL(pnl float64, now time.Time) {
	s.Equity += pnl
	s.DailyPnL += pnl
	if s.Equity > s.PeakEquity {
		s.PeakEquity = s.Equity
	}
	if s.PeakEquity > 0 {
		s.DrawdownPct = (s.PeakEquity - s.Equity) / s.PeakEquity * 100
	}
	s.UpdatedAt = now
}

// RejectReason enumerates normal risk-gate rejection outcomes. A rejection
// is control flow, not an error: the signal is dropped and no trade exists.
type RejectReason string

const (
	RejectMaxPositions   RejectReason = "MAX_POSITIONS_EXCEEDED"
	RejectDailyLossLimit RejectReason = "DAILY_LOSS_LIMIT_BREACHED"
	RejectDrawdownLimit  RejectReason = "DRAWDOWN_LIMIT_BREACHED"
	RejectUnsizeable     RejectReason = "UNSIZEABLE_ENTRY" // zero or negative risk per unit
)
