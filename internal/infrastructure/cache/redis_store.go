package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/repositories"
)

// Ensure RedisStore implements PortfolioRepository
var _ repositories.PortfolioRepository = (*RedisStore)(nil)

// RedisStore implements PortfolioRepository on Redis, keeping the whole
// holdings list as a single JSON document under one key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a new Redis-backed holdings store
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("key", cfg.HoldingsKey),
	)

	return &RedisStore{
		client: client,
		key:    cfg.HoldingsKey,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load retrieves the holdings list. A missing key means an empty portfolio.
func (s *RedisStore) Load(ctx context.Context) ([]entities.Holding, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return []entities.Holding{}, nil
		}
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	var holdings []entities.Holding
	if err := json.Unmarshal([]byte(val), &holdings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
	}

	return holdings, nil
}

// Save replaces the stored holdings list
func (s *RedisStore) Save(ctx context.Context, holdings []entities.Holding) error {
	data, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save holdings: %w", err)
	}

	return nil
}

// HealthCheck checks if Redis is reachable
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
