package repository

import (
	"context"
	"time"

	"Fractrade/internal/domain/models"
	"Fractrade/internal/domain/repository"
	"Fractrade/pkg/cache"
)

// latestBarsTTL bounds staleness of cached API reads. Closed bars are
// immutable, only the window's tail moves.
const latestBarsTTL = 30 * time.Second

// CachedBarStore caches GetLatestNBars reads in front of ClickHouse. A new
// bar for the series invalidates the window so the next read sees it.
type CachedBarStore struct {
	inner repository.BarStore
	cache cache.Service
}

func NewCachedBarStore(inner repository.BarStore, c cache.Service) *CachedBarStore {
	return &CachedBarStore{inner: inner, cache: c}
}

func (s *CachedBarStore) StoreBar(ctx context.Context, bar *models.PriceBar) error {
	if err := s.inner.StoreBar(ctx, bar); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, cache.Key("bars", bar.Symbol, bar.Timeframe))
	return nil
}

func (s *CachedBarStore) GetBars(ctx context.Context, symbol string, tf repository.Timeframe, since time.Time, limit int) ([]models.PriceBar, error) {
	return s.inner.GetBars(ctx, symbol, tf, since, limit)
}

func (s *CachedBarStore) GetLatestNBars(ctx context.Context, symbol string, tf repository.Timeframe, n int) ([]models.PriceBar, error) {
	key := cache.Key("bars", symbol, string(tf))

	var cached []models.PriceBar
	if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) >= n {
		return cached[len(cached)-n:], nil
	}

	bars, err := s.inner.GetLatestNBars(ctx, symbol, tf, n)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, bars, latestBarsTTL)
	return bars, nil
}

func (s *CachedBarStore) Health(ctx context.Context) error {
	return s.inner.Health(ctx)
}

func (s *CachedBarStore) Close() error {
	_ = s.cache.Close()
	return s.inner.Close()
}
