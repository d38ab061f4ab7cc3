package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces processed import keys in Redis
const DefaultKeyPrefix = "import:processed:"

// RedisKeyStore remembers processed keys in Redis so every instance
// running imports shares them
type RedisKeyStore struct {
	client    redis.UniversalClient
	keyPrefix string
	owned     bool
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisKeyStore creates a store on a shared client. Close leaves the
// client open.
func NewRedisKeyStore(client redis.UniversalClient, keyPrefix string) *RedisKeyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisKeyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed uses SET NX with the TTL so concurrent importers agree on
// which of them saw the key first
func (s *RedisKeyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark key as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed implements shared.IdempotencyStore
func (s *RedisKeyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processed key: %w", err)
	}
	return n > 0, nil
}

// Close closes the client only if the store created it
func (s *RedisKeyStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ shared.IdempotencyStore = (*RedisKeyStore)(nil)
