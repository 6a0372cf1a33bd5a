package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache defines the caching interface shared by the memory and redis
// providers
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool

	// GetDelete atomically reads and removes a key. Used for
	// single-use values such as OAuth state tokens.
	GetDelete(ctx context.Context, key string) (interface{}, bool)

	// Increment atomically adds delta to a counter, creating it with
	// the given ttl when missing. Used by the rate limiter.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	Health(ctx context.Context) error
	Close() error
}

// Config holds cache configuration
type Config struct {
	Provider        string        `json:"provider"` // "memory", "redis"
	TTL             time.Duration `json:"ttl"`
	MaxKeys         int           `json:"max_keys"`
	CleanupInterval time.Duration `json:"cleanup_interval"`

	RedisURL string `json:"redis_url"`
	PoolSize int    `json:"pool_size"`
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             15 * time.Minute,
		MaxKeys:         10000,
		CleanupInterval: 5 * time.Minute,
		PoolSize:        10,
	}
}

// NewCache creates a cache instance based on configuration
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("using in-memory cache")
		return NewMemoryCache(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type memoryCache struct {
	mu              sync.Mutex
	items           map[string]*cacheItem
	maxKeys         int
	cleanupInterval time.Duration
	logger          *zap.Logger
	stopCh          chan struct{}
	closeOnce       sync.Once
}

type cacheItem struct {
	Value      interface{}
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// NewMemoryCache creates an in-memory cache with periodic cleanup of
// expired keys and LRU eviction past MaxKeys
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	c := &memoryCache{
		items:           make(map[string]*cacheItem),
		maxKeys:         config.MaxKeys,
		cleanupInterval: config.CleanupInterval,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(item.ExpiresAt) {
		delete(c.items, key)
		return nil, false
	}

	item.AccessedAt = time.Now()
	return item.Value, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := time.Now()
	c.items[key] = &cacheItem{
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		AccessedAt: now,
	}

	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) bool {
	_, found := c.Get(ctx, key)
	return found
}

func (c *memoryCache) GetDelete(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	delete(c.items, key)

	if time.Now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Value, true
}

func (c *memoryCache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	item, ok := c.items[key]
	if !ok || now.After(item.ExpiresAt) {
		c.items[key] = &cacheItem{
			Value:      delta,
			ExpiresAt:  now.Add(ttl),
			AccessedAt: now,
		}
		return delta, nil
	}

	switch v := item.Value.(type) {
	case int64:
		newValue := v + delta
		item.Value = newValue
		item.AccessedAt = now
		return newValue, nil
	case int:
		newValue := int64(v) + delta
		item.Value = newValue
		item.AccessedAt = now
		return newValue, nil
	default:
		return 0, fmt.Errorf("value at key %s is not numeric", key)
	}
}

func (c *memoryCache) Health(ctx context.Context) error {
	testKey := "__health_check__"
	testValue := time.Now().UnixNano()

	if err := c.Set(ctx, testKey, testValue, time.Minute); err != nil {
		return fmt.Errorf("cache health check failed: unable to set value: %w", err)
	}
	value, found := c.Get(ctx, testKey)
	if !found {
		return fmt.Errorf("cache health check failed: unable to get value")
	}
	if value != testValue {
		return fmt.Errorf("cache health check failed: value mismatch")
	}

	c.Delete(ctx, testKey)
	return nil
}

func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug("cleaned up expired cache items",
			zap.Int("expired_count", expired),
			zap.Int("remaining_count", len(c.items)),
		)
	}
}

// evictLRU evicts the least recently accessed item. Caller holds the lock.
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.AccessedAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
	config *Config
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var options *redis.Options
	if config.RedisURL != "" {
		var err error
		options, err = redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
	} else {
		options = &redis.Options{Addr: "localhost:6379"}
	}

	if config.PoolSize > 0 {
		options.PoolSize = config.PoolSize
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return &redisCache{
		client: client,
		logger: logger,
		config: config,
	}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		r.logger.Error("failed to get from Redis",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}

	return decodeRedisValue(val), true
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	val, err := encodeRedisValue(value)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = r.config.TTL
	}

	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) Exists(ctx context.Context, key string) bool {
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("failed to check key existence",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return exists > 0
}

func (r *redisCache) GetDelete(ctx context.Context, key string) (interface{}, bool) {
	val, err := r.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		r.logger.Error("failed to getdel from Redis",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}

	return decodeRedisValue(val), true
}

func (r *redisCache) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	val, err := r.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, err
	}
	// First write for this key, attach the window TTL
	if val == delta && ttl > 0 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			r.logger.Warn("failed to set counter TTL",
				zap.String("key", key),
				zap.Error(err))
		}
	}
	return val, nil
}

func (r *redisCache) Health(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

func encodeRedisValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value: %w", err)
		}
		return string(data), nil
	}
}

func decodeRedisValue(val string) interface{} {
	var result interface{}
	if err := json.Unmarshal([]byte(val), &result); err == nil {
		return result
	}
	return val
}
