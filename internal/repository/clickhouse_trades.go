package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Fractrade/internal/domain/models"
)

// TradeSchema creates the trades table. Each lifecycle transition upserts a
// full snapshot; ReplacingMergeTree keyed by id with the update timestamp as
// version keeps only the latest snapshot per trade.
var TradeSchema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id            String,
		symbol        LowCardinality(String),
		side          LowCardinality(String),
		entry_price   Float64,
		stop_loss     Float64,
		take_profit   Float64,
		size          Float64,
		signal_id     String,
		status        LowCardinality(String),
		created_at    DateTime64(3, 'UTC'),
		fill_price    Nullable(Float64),
		fill_order_id Nullable(String),
		fill_time     Nullable(DateTime64(3, 'UTC')),
		exit_price    Nullable(Float64),
		close_reason  Nullable(String),
		pnl           Nullable(Float64),
		close_time    Nullable(DateTime64(3, 'UTC')),
		cancel_reason Nullable(String),
		updated       DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(updated)
	ORDER BY (id)`,
}

// ClickHouseTradeStore implements repository.TradeStore on ClickHouse.
type ClickHouseTradeStore struct {
	db *sql.DB
}

// NewClickHouseTradeStore creates a trade store backed by the given pool.
func NewClickHouseTradeStore(db *sql.DB) *ClickHouseTradeStore {
	return &ClickHouseTradeStore{db: db}
}

func (s *ClickHouseTradeStore) UpsertTrade(ctx context.Context, t *models.Trade) error {
	const q = `INSERT INTO trades
		(id, symbol, side, entry_price, stop_loss, take_profit, size, signal_id, status, created_at,
		 fill_price, fill_order_id, fill_time, exit_price, close_reason, pnl, close_time, cancel_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, q, tradeArgs(t)...); err != nil {
		return fmt.Errorf("upsert trade %s: %w", t.ID, err)
	}
	return nil
}

// tradeArgs maps a trade snapshot onto the trades columns. Fill and Closure
// sub-records become NULL column groups when absent.
func tradeArgs(t *models.Trade) []interface{} {
	var (
		fillPrice, exitPrice, pnl sql.NullFloat64
		fillOrderID, closeReason  sql.NullString
		cancelReason              sql.NullString
		fillTime, closeTime       sql.NullTime
	)
	if t.Fill != nil {
		fillPrice = sql.NullFloat64{Float64: t.Fill.Price, Valid: true}
		fillOrderID = sql.NullString{String: t.Fill.OrderID, Valid: true}
		fillTime = sql.NullTime{Time: t.Fill.Time, Valid: true}
	}
	if t.Closure != nil {
		exitPrice = sql.NullFloat64{Float64: t.Closure.Price, Valid: true}
		closeReason = sql.NullString{String: string(t.Closure.Reason), Valid: true}
		pnl = sql.NullFloat64{Float64: t.Closure.PnL, Valid: true}
		closeTime = sql.NullTime{Time: t.Closure.Time, Valid: true}
	}
	if t.CancelReason != "" {
		cancelReason = sql.NullString{String: t.CancelReason, Valid: true}
	}

	return []interface{}{
		t.ID, t.Symbol, string(t.Side), t.EntryPrice, t.StopLoss, t.TakeProfit,
		t.Size, t.SignalID, string(t.Status), t.CreatedAt,
		fillPrice, fillOrderID, fillTime,
		exitPrice, closeReason, pnl, closeTime, cancelReason,
	}
}

func (s *ClickHouseTradeStore) GetTrades(ctx context.Context, symbol string, status models.TradeStatus, limit int) ([]*models.Trade, error) {
	q := `SELECT id, symbol, side, entry_price, stop_loss, take_profit, size, signal_id, status, created_at,
			fill_price, fill_order_id, fill_time, exit_price, close_reason, pnl, close_time, cancel_reason
		FROM trades FINAL WHERE 1 = 1`
	args := make([]interface{}, 0, 3)
	if symbol != "" {
		q += " AND symbol = ?"
		args = append(args, symbol)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *ClickHouseTradeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTradeStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

// rowScanner is satisfied by *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(rows rowScanner) (*models.Trade, error) {
	var (
		t                         models.Trade
		side, status              string
		createdAt                 time.Time
		fillPrice, exitPrice, pnl sql.NullFloat64
		fillOrderID, closeReason  sql.NullString
		cancelReason              sql.NullString
		fillTime, closeTime       sql.NullTime
	)
	if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
		&t.Size, &t.SignalID, &status, &createdAt,
		&fillPrice, &fillOrderID, &fillTime,
		&exitPrice, &closeReason, &pnl, &closeTime, &cancelReason); err != nil {
		return nil, fmt.Errorf("scan trade: %w", err)
	}
	t.Side = models.TradeSide(side)
	t.Status = models.TradeStatus(status)
	t.CreatedAt = createdAt
	if fillPrice.Valid {
		t.Fill = &models.TradeFill{
			Price:   fillPrice.Float64,
			OrderID: fillOrderID.String,
			Time:    fillTime.Time,
		}
	}
	if exitPrice.Valid {
		t.Closure = &models.TradeClosure{
			Price:  exitPrice.Float64,
			Reason: models.CloseReason(closeReason.String),
			PnL:    pnl.Float64,
			Time:   closeTime.Time,
		}
	}
	if cancelReason.Valid {
		t.CancelReason = cancelReason.String
	}
	return &t, nil
}
