package models

import (
	"fmt"
	"time"
)

type TradeSide string

const (
	Long  TradeSide = "LONG"
	Short TradeSide = "SHORT"
)

// Sign returns +1 for long, -1 for short, used in PnL arithmetic.
func (s TradeSide) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeOpen      TradeStatus = "OPEN"
	TradeClosed    TradeStatus = "CLOSED"
	TradeCancelled TradeStatus = "CANCELLED"
)

// CloseReason explains why an open trade was closed.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseManual     CloseReason = "MANUAL"
)

// TradeFill holds the fields that only exist once a trade is OPEN.
type TradeFill struct {
	Price   float64   `json:"price"`
	OrderID string    `json:"order_id"`
	Time    time.Time `json:"time"`
}

// TradeClosure holds the fields that only exist once a trade is CLOSED.
type TradeClosure struct {
	Price  float64     `json:"price"`
	Reason CloseReason `json:"reason"`
	PnL    float64     `json:"pnl"`
	Time   time.Time   `json:"time"`
}

// Trade is a risk-approved position moving through the lifecycle
// PENDING -> OPEN -> CLOSED (or PENDING -> CANCELLED). Stop-loss and
// take-profit are frozen at creation and never mutated. Fill and Closure are
// nil until the corresponding transition happens, so illegal field
// combinations cannot be represented.
type Trade struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Side       TradeSide   `json:"side"`
	EntryPrice float64     `json:"entry_price"`
	StopLoss   float64     `json:"stop_loss"`
	TakeProfit float64     `json:"take_profit"`
	Size       float64     `json:"size"`
	SignalID   string      `json:"signal_id"`
	Status     TradeStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`

	Fill         *TradeFill    `json:"fill,omitempty"`
	Closure      *TradeClosure `json:"closure,omitempty"`
	CancelReason string        `json:"cancel_reason,omitempty"`
}

// NewTrade creates a PENDING trade from an approved signal.
func NewTrade(id string, sig *Signal, size, stopLoss, takeProfit float64, now time.Time) *Trade {
	return &Trade{
		ID:         id,
		Symbol:     sig.Symbol,
		Side:       sig.Side(),
		EntryPrice: sig.RefPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Size:       size,
		SignalID:   sig.ID,
		Status:     TradePending,
		CreatedAt:  now,
	}
}

// Open transitions PENDING -> OPEN on a confirmed fill.
func (t *Trade) Open(orderID string, fillPrice float64, now time.Time) error {
	if t.Status != TradePending {
		return fmt.Errorf("trade %s: %w: %s -> OPEN", t.ID, ErrInvalidTransition, t.Status)
	}
	t.Status = TradeOpen
	t.Fill = &TradeFill{Price: fillPrice, OrderID: orderID, Time: now}
	return nil
}

// Cancel transitions PENDING -> CANCELLED on gateway rejection or timeout.
func (t *Trade) Cancel(reason string, now time.Time) error {
	if t.Status != TradePending {
		return fmt.Errorf("trade %s: %w: %s -> CANCELLED", t.ID, ErrInvalidTransition, t.Status)
	}
	t.Status = TradeCancelled
	t.CancelReason = reason
	return nil
}

// Close transitions OPEN -> CLOSED and computes realized PnL against the
// actual fill price.
func (t *Trade) Close(exitPrice float64, reason CloseReason, now time.Time) error {
	if t.Status != TradeOpen {
		return fmt.Errorf("trade %s: %w: %s -> CLOSED", t.ID, ErrInvalidTransition, t.Status)
	}
	pnl := (exitPrice - t.Fill.Price) * t.Size * t.Side.Sign()
	t.Status = TradeClosed
	t.Closure = &TradeClosure{Price: exitPrice, Reason: reason, PnL: pnl, Time: now}
	return nil
}
