package market

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/maxwellmelo/lighter-backend/internal/entity"
	"github.com/redis/go-redis/v9"
)

// RedisDecimalStore shares decimal cache entries between replicas so only one
// instance needs to hit the listing endpoint after a deploy.
type RedisDecimalStore struct {
	client *redis.Client
}

type storedDecimals struct {
	SizeDecimals  int32 `json:"size_decimals"`
	PriceDecimals int32 `json:"price_decimals"`
}

func NewRedisDecimalStore(cacheDSN string) (*RedisDecimalStore, error) {
	if cacheDSN == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	return &RedisDecimalStore{client: redis.NewClient(options)}, nil
}

func (s *RedisDecimalStore) Load(ctx context.Context, marketIndex int64) (entity.MarketDecimals, bool, error) {
	raw, err := s.client.Get(ctx, decimalsKey(marketIndex)).Result()
	if err != nil {
		if err == redis.Nil {
			return entity.MarketDecimals{}, false, nil
		}
		return entity.MarketDecimals{}, false, err
	}

	var stored storedDecimals
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return entity.MarketDecimals{}, false, err
	}

	return entity.MarketDecimals{
		SizeDecimals:  stored.SizeDecimals,
		PriceDecimals: stored.PriceDecimals,
	}, true, nil
}

func (s *RedisDecimalStore) Save(ctx context.Context, marketIndex int64, decimals entity.MarketDecimals) error {
	payload, err := json.Marshal(storedDecimals{
		SizeDecimals:  decimals.SizeDecimals,
		PriceDecimals: decimals.PriceDecimals,
	})
	if err != nil {
		return err
	}

	return s.client.Set(ctx, decimalsKey(marketIndex), payload, 0).Err()
}

func (s *RedisDecimalStore) Close() error {
	return s.client.Close()
}

func decimalsKey(marketIndex int64) string {
	return fmt.Sprintf("lighter:market_decimals:%d", marketIndex)
}
