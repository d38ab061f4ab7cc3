package cache

import (
	"context"
	"fmt"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewKeyStore builds the processed-key store named by import.idempotency_backend.
// With the redis backend a new client is opened and owned by the store.
func NewKeyStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Import.IdempotencyBackend {
	case config.IdempotencyBackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis processed-key store: %w", err)
		}
		store := NewRedisKeyStore(client, DefaultKeyPrefix)
		store.owned = true
		logger.Info("using Redis processed-key store", zap.String("addr", cfg.Redis.Addr()))
		return store, nil
	case config.IdempotencyBackendMemory, "":
		logger.Info("using in-memory processed-key store")
		return NewMemoryKeyStore(0), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Import.IdempotencyBackend)
	}
}
