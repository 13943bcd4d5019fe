package repository

import (
	"context"
	"time"

	"Fractrade/internal/domain/models"
)

// BarStream delivers closed candles from a market data feed.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceBar, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarStore persists and serves historical bars.
type BarStore interface {
	StoreBar(ctx context.Context, bar *models.PriceBar) error
	GetBars(ctx context.Context, symbol string, tf Timeframe, since time.Time, limit int) ([]models.PriceBar, error)
	GetLatestNBars(ctx context.Context, symbol string, tf Timeframe, n int) ([]models.PriceBar, error)
	Health(ctx context.Context) error
	Close() error
}

// OrderRequest is what the engine hands to the execution gateway.
type OrderRequest struct {
	TradeID    string           `json:"trade_id"`
	Symbol     string           `json:"symbol"`
	Side       models.TradeSide `json:"side"`
	Size       float64          `json:"size"`
	LimitPrice float64          `json:"limit_price"`
}

// OrderResult is the gateway's eventual answer for a submitted order.
type OrderResult struct {
	OrderID   string  `json:"order_id"`
	Filled    bool    `json:"filled"`
	FillPrice float64 `json:"fill_price"`
	Reason    string  `json:"reason,omitempty"` // set when not filled
}

// ExecutionGateway submits orders to an exchange (or a simulation of one).
// SubmitOrder blocks until the order is resolved or ctx expires; callers run
// it off the hot path.
type ExecutionGateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// TradeStore is the persistence gateway for trades. Upserts are idempotent
// by trade ID: one upsert per lifecycle transition.
type TradeStore interface {
	UpsertTrade(ctx context.Context, t *models.Trade) error
	GetTrades(ctx context.Context, symbol string, status models.TradeStatus, limit int) ([]*models.Trade, error)
	Health(ctx context.Context) error
	Close() error
}

// RiskStore persists the risk-state snapshot. Load returns nil when no
// snapshot exists yet.
type RiskStore interface {
	Load(ctx context.Context) (*models.RiskState, error)
	Save(ctx context.Context, st *models.RiskState) error
}

// EventPublisher fans lifecycle transitions and emitted signals out to the
// event bus. Publish failures must never block the pipeline.
type EventPublisher interface {
	PublishSignal(ctx context.Context, sig *models.Signal) error
	PublishTradeEvent(ctx context.Context, ev *models.TradeEvent) error
	Close() error
}

// Metrics records pipeline and trading telemetry.
type Metrics interface {
	RecordBar(symbol, tf string)
	RecordCandidate(symbol, tf, typ string)
	RecordConfirmation(symbol, tf, typ string)
	RecordInvalidation(symbol, tf string)
	RecordSignal(symbol, direction string)
	RecordTrade(symbol, status string)
	RecordRiskRejection(reason string)
	RecordRiskState(equity, dailyPnL, drawdownPct float64, openPositions int)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
