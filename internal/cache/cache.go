package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/aqi-forecast/internal/forecast"
)

// DefaultKey is the Redis key holding the latest forecast
const DefaultKey = "aqi_forecast:latest"

// ErrMiss is returned when no unexpired result is cached
var ErrMiss = errors.New("no cached forecast")

// Store keeps the latest forecast result between pipeline runs
type Store interface {
	Get(ctx context.Context) (*forecast.Result, error)
	Set(ctx context.Context, result *forecast.Result) error
}

// RedisStore caches results in Redis with a TTL
type RedisStore struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

// NewRedisStore creates a new Redis-backed result cache
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, key: DefaultKey, ttl: ttl}
}

// Get returns the cached result or ErrMiss
func (s *RedisStore) Get(ctx context.Context) (*forecast.Result, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast from Redis: %w", err)
	}
	return decode(data)
}

// Set stores the result, replacing any previous one
func (s *RedisStore) Set(ctx context.Context, result *forecast.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast: %w", err)
	}

	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set forecast in Redis: %w", err)
	}
	return nil
}

// Invalidate drops the cached result
func (s *RedisStore) Invalidate(ctx context.Context) error {
	return s.redis.Del(ctx, s.key).Err()
}

// MemoryStore caches the result in process, for single-instance setups
type MemoryStore struct {
	mu      sync.RWMutex
	data    []byte
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-process result cache. A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached result or ErrMiss
func (s *MemoryStore) Get(ctx context.Context) (*forecast.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil || (s.ttl > 0 && !s.now().Before(s.expires)) {
		return nil, ErrMiss
	}
	return decode(s.data)
}

// Set stores the result
func (s *MemoryStore) Set(ctx context.Context, result *forecast.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.expires = s.now().Add(s.ttl)
	return nil
}

func decode(data []byte) (*forecast.Result, error) {
	var result forecast.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast: %w", err)
	}
	return &result, nil
}
