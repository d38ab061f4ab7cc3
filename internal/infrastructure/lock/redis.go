package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the distributed lock manager
type RedisConfig struct {
	// Prefix namespaces lock keys, e.g. "lotledger:lock:"
	Prefix string
	// TTL is how long a lock lives if its holder dies
	TTL time.Duration
	// Timeout bounds the wait for the whole scope set
	Timeout time.Duration
	// RetryInterval is the pause between obtain attempts
	RetryInterval time.Duration
}

// DefaultRedisConfig returns the default distributed lock settings
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:        "lotledger:lock:",
		TTL:           30 * time.Second,
		Timeout:       DefaultTimeout,
		RetryInterval: 25 * time.Millisecond,
	}
}

// RedisManager serializes lot scopes across processes with redislock
type RedisManager struct {
	locker *redislock.Client
	cfg    RedisConfig
	logger *zap.Logger
}

// NewRedisManager creates a RedisManager on an existing client
func NewRedisManager(client redis.UniversalClient, cfg RedisConfig, logger *zap.Logger) *RedisManager {
	def := DefaultRedisConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisManager{
		locker: redislock.New(client),
		cfg:    cfg,
		logger: logger,
	}
}

// AcquireAll implements shared.LockManager
func (m *RedisManager) AcquireAll(ctx context.Context, scopes []string) (shared.Release, error) {
	keys := normalize(scopes)
	if len(keys) == 0 {
		return func() {}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	held := make([]*redislock.Lock, 0, len(keys))
	for _, key := range keys {
		l, err := m.locker.Obtain(waitCtx, m.cfg.Prefix+key, m.cfg.TTL, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(m.cfg.RetryInterval),
		})
		if err != nil {
			m.release(held)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				m.logger.Warn("could not obtain redis lot lock",
					zap.String("scope", key),
					zap.Duration("timeout", m.cfg.Timeout),
				)
				return nil, shared.NewContentionError(key, err)
			}
			return nil, err
		}
		held = append(held, l)
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.release(held) })
	}, nil
}

func (m *RedisManager) release(held []*redislock.Lock) {
	// Release with a fresh context so a cancelled request still frees its locks
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if err := held[i].Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			m.logger.Warn("failed to release redis lot lock",
				zap.String("key", held[i].Key()),
				zap.Error(err),
			)
		}
	}
}

var _ shared.LockManager = (*RedisManager)(nil)
