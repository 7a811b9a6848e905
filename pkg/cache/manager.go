package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/tmio-cotd-client/pkg/cotd"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Config holds cache settings.
type Config struct {
	// Namespace prefixes every key.
	Namespace string

	// Host scopes keys to one API host.
	Host string

	// TTL is how long a resolution is served.
	TTL time.Duration
}

// DefaultConfig returns the default cache settings.
func DefaultConfig() Config {
	return Config{
		Namespace: DefaultNamespace,
		Host:      "trackmania.io",
		TTL:       24 * time.Hour,
	}
}

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	config Config
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, cfg Config) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Manager{
		redis:  redisClient,
		config: cfg,
	}
}

// Key returns the cache key for a player name.
func (m *Manager) Key(name string) CacheKey {
	return CacheKey{Namespace: m.config.Namespace, Host: m.config.Host, Name: name}
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.PlayerID == "" {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: empty player id", ErrInvalidEntry)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Lookup returns the cached resolution for name.
// A miss is reported as found == false with a nil error.
func (m *Manager) Lookup(ctx context.Context, name string) (cotd.ResolvedPlayer, bool, error) {
	entry, err := m.Get(ctx, m.Key(name))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return cotd.ResolvedPlayer{}, false, nil
		}
		return cotd.ResolvedPlayer{}, false, err
	}
	return entry.Player(), true, nil
}

// Store caches a successful resolution of name for the configured TTL.
func (m *Manager) Store(ctx context.Context, name string, player cotd.ResolvedPlayer) error {
	return m.Set(ctx, m.Key(name), NewEntry(player, m.config.TTL))
}
