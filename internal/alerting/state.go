package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertState is the alert status of one forecast horizon
type AlertState struct {
	Status      string    `json:"status"` // CLEAR, ALERTING
	Severity    string    `json:"severity"`
	Since       time.Time `json:"since"`
	LastChecked time.Time `json:"last_checked"`
	AQI         float64   `json:"aqi"`
	AlertID     string    `json:"alert_id,omitempty"`
}

const (
	AlertStateClear  = "CLEAR"
	AlertStateActive = "ALERTING"
)

// stateTTL drops states of horizons that stopped being evaluated
const stateTTL = 7 * 24 * time.Hour

// StateStore persists alert states per horizon
type StateStore interface {
	GetState(ctx context.Context, horizon int) (*AlertState, error)
	SetState(ctx context.Context, horizon int, state *AlertState) error
	DeleteState(ctx context.Context, horizon int) error
}

func stateKey(horizon int) string {
	return fmt.Sprintf("forecast_alert:%dh", horizon)
}

// RedisStateStore keeps alert states in Redis
type RedisStateStore struct {
	redis *redis.Client
}

// NewRedisStateStore creates a new Redis state store
func NewRedisStateStore(redisClient *redis.Client) *RedisStateStore {
	return &RedisStateStore{redis: redisClient}
}

// GetState retrieves the alert state for a horizon
func (s *RedisStateStore) GetState(ctx context.Context, horizon int) (*AlertState, error) {
	data, err := s.redis.Get(ctx, stateKey(horizon)).Result()
	if err == redis.Nil {
		return &AlertState{Status: AlertStateClear}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var state AlertState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// SetState saves the alert state for a horizon
func (s *RedisStateStore) SetState(ctx context.Context, horizon int, state *AlertState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.redis.Set(ctx, stateKey(horizon), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}
	return nil
}

// DeleteState removes the alert state (returns to CLEAR)
func (s *RedisStateStore) DeleteState(ctx context.Context, horizon int) error {
	return s.redis.Del(ctx, stateKey(horizon)).Err()
}

// MemoryStateStore keeps alert states in process
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[int]AlertState
}

// NewMemoryStateStore creates an empty in-process state store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[int]AlertState)}
}

// GetState retrieves the alert state for a horizon
func (s *MemoryStateStore) GetState(ctx context.Context, horizon int) (*AlertState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[horizon]
	if !ok {
		return &AlertState{Status: AlertStateClear}, nil
	}
	return &state, nil
}

// SetState saves the alert state for a horizon
func (s *MemoryStateStore) SetState(ctx context.Context, horizon int, state *AlertState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[horizon] = *state
	return nil
}

// DeleteState removes the alert state
func (s *MemoryStateStore) DeleteState(ctx context.Context, horizon int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, horizon)
	return nil
}
