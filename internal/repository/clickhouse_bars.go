package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Fractrade/internal/domain/models"
	"Fractrade/internal/domain/repository"
)

// BarSchema creates the bars table. ReplacingMergeTree collapses duplicate
// (symbol, timeframe, ts) rows so re-ingested bars overwrite in place.
var BarSchema = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		symbol    LowCardinality(String),
		timeframe LowCardinality(String),
		ts        DateTime64(3, 'UTC'),
		open      Float64,
		high      Float64,
		low       Float64,
		close     Float64,
		volume    Float64,
		inserted  DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(inserted)
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, timeframe, ts)`,
}

// ClickHouseBarStore implements repository.BarStore on ClickHouse.
type ClickHouseBarStore struct {
	db *sql.DB
}

// NewClickHouseBarStore creates a bar store backed by the given pool.
func NewClickHouseBarStore(db *sql.DB) *ClickHouseBarStore {
	return &ClickHouseBarStore{db: db}
}

func (s *ClickHouseBarStore) StoreBar(ctx context.Context, bar *models.PriceBar) error {
	const q = `INSERT INTO bars (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		bar.Symbol, bar.Timeframe, bar.Timestamp,
		bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
	)
	if err != nil {
		return fmt.Errorf("store bar %s/%s: %w", bar.Symbol, bar.Timeframe, err)
	}
	return nil
}

func (s *ClickHouseBarStore) GetBars(ctx context.Context, symbol string, tf repository.Timeframe, since time.Time, limit int) ([]models.PriceBar, error) {
	const q = `SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM bars FINAL
		WHERE symbol = ? AND timeframe = ? AND ts >= ?
		ORDER BY ts ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), since, limit)
	if err != nil {
		return nil, fmt.Errorf("get bars %s/%s: %w", symbol, tf, err)
	}
	defer rows.Close()
	return scanBars(rows)
}

// GetLatestNBars returns the most recent n bars in ascending time order.
func (s *ClickHouseBarStore) GetLatestNBars(ctx context.Context, symbol string, tf repository.Timeframe, n int) ([]models.PriceBar, error) {
	const q = `SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM bars FINAL
		WHERE symbol = ? AND timeframe = ?
		ORDER BY ts DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), n)
	if err != nil {
		return nil, fmt.Errorf("get latest bars %s/%s: %w", symbol, tf, err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

func scanBars(rows *sql.Rows) ([]models.PriceBar, error) {
	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Timeframe, &b.Timestamp,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
