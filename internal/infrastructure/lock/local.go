package lock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erp/lotledger/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultTimeout bounds how long AcquireAll waits for a whole scope set
const DefaultTimeout = 5 * time.Second

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalManager is an in-process LockManager. Each scope is a one-token
// channel; slots are reference counted and dropped when nobody waits on them.
type LocalManager struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
	logger  *zap.Logger
}

// NewLocalManager creates a LocalManager waiting at most timeout per AcquireAll
func NewLocalManager(timeout time.Duration, logger *zap.Logger) *LocalManager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalManager{
		slots:   make(map[string]*slot),
		timeout: timeout,
		logger:  logger,
	}
}

// AcquireAll implements shared.LockManager
func (m *LocalManager) AcquireAll(ctx context.Context, scopes []string) (shared.Release, error) {
	keys := normalize(scopes)
	if len(keys) == 0 {
		return func() {}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		s := m.ref(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-waitCtx.Done():
			m.unref(key)
			m.releaseAll(held)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("lot lock wait timed out",
				zap.String("scope", key),
				zap.Duration("timeout", m.timeout),
			)
			return nil, shared.NewContentionError(key, waitCtx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.releaseAll(held) })
	}, nil
}

// Held reports how many scopes currently have a holder or waiter
func (m *LocalManager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *LocalManager) ref(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *LocalManager) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

// releaseAll frees held scopes in reverse acquisition order
func (m *LocalManager) releaseAll(held []string) {
	for i := len(held) - 1; i >= 0; i-- {
		m.mu.Lock()
		s := m.slots[held[i]]
		m.mu.Unlock()
		if s != nil {
			<-s.ch
		}
		m.unref(held[i])
	}
}

// normalize trims, drops empty and duplicate scopes, and sorts ascending
func normalize(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var _ shared.LockManager = (*LocalManager)(nil)
