package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"Fractrade/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

const riskStateKey = "fractrade:risk:state"

// RedisRiskStore implements repository.RiskStore as a single JSON snapshot
// in Redis. The snapshot is small and overwritten whole on every save.
type RedisRiskStore struct {
	client *redis.Client
}

// NewRedisRiskStore creates a risk store backed by Redis.
func NewRedisRiskStore(client *redis.Client) *RedisRiskStore {
	return &RedisRiskStore{client: client}
}

// Load returns nil without error when no snapshot exists yet.
func (s *RedisRiskStore) Load(ctx context.Context) (*models.RiskState, error) {
	data, err := s.client.Get(ctx, riskStateKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load risk state: %w", err)
	}

	var st models.RiskState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode risk state: %w", err)
	}
	return &st, nil
}

func (s *RedisRiskStore) Save(ctx context.Context, st *models.RiskState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode risk state: %w", err)
	}
	if err := s.client.Set(ctx, riskStateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save risk state: %w", err)
	}
	return nil
}
