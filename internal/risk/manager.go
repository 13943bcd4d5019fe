package risk

import (
	"math"

	"Fractrade/internal/domain/models"
)

// Limits holds the account-level risk configuration.
type Limits struct {
	PositionSizePct   float64 // percent of equity risked per trade
	MaxPositions      int
	StopLossPct       float64
	TakeProfitPct     float64
	DailyLossLimitPct float64
	MaxDrawdownPct    float64
}

// Decision is the outcome of gating a signal through the risk limits.
type Decision struct {
	Approved   bool
	Reason     models.RejectReason // set when rejected
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Size       float64
}

// Evaluate gates a proposed entry against the risk state and computes the
// position size. It is a pure function of its inputs; the caller is
// responsible for holding the state still (risk.Book) while acting on the
// decision.
func Evaluate(lim Limits, st models.RiskState, side models.TradeSide, entry float64) Decision {
	if st.OpenPositions >= lim.MaxPositions {
		return Decision{Reason: models.RejectMaxPositions}
	}
	if st.DailyPnL <= -lim.DailyLossLimitPct*st.Equity/100 {
		return Decision{Reason: models.RejectDailyLossLimit}
	}
	if st.DrawdownPct >= lim.MaxDrawdownPct {
		return Decision{Reason: models.RejectDrawdownLimit}
	}

	stop := entry * (1 - lim.StopLossPct/100)
	target := entry * (1 + lim.TakeProfitPct/100)
	if side == models.Short {
		stop = entry * (1 + lim.StopLossPct/100)
		target = entry * (1 - lim.TakeProfitPct/100)
	}

	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit <= 0 {
		return Decision{Reason: models.RejectUnsizeable}
	}
	size := st.Equity * lim.PositionSizePct / 100 / riskPerUnit

	return Decision{
		Approved:   true,
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Size:       size,
	}
}
