package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sawpanic/taixiu/internal/application/predictor"
)

// DefaultSnapshotKey is used when no key is configured.
const DefaultSnapshotKey = "taixiu:session"

// memoryStore keeps the snapshot in process memory.
type memoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns a store that lives as long as the process.
func NewMemoryStore() SnapshotStore { return &memoryStore{} }

func (m *memoryStore) Save(_ context.Context, snap predictor.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	m.mu.Lock()
	m.data = b
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Load(_ context.Context) (predictor.Snapshot, error) {
	m.mu.Lock()
	b := m.data
	m.mu.Unlock()
	if b == nil {
		return predictor.Snapshot{}, ErrSnapshotNotFound
	}
	var snap predictor.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return predictor.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (m *memoryStore) Close() error { return nil }

// RedisStore keeps the snapshot under one Redis key.
type RedisStore struct {
	r       *redis.Client
	key     string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisStore{r: client, key: key, ttl: ttl, timeout: 2 * time.Second}
}

// NewAuto returns a Redis store when addr is set and a memory store otherwise.
func NewAuto(addr string, db int, key string, ttl time.Duration) SnapshotStore {
	if addr != "" {
		return NewRedisStore(redis.NewClient(&redis.Options{Addr: addr, DB: db}), key, ttl)
	}
	return NewMemoryStore()
}

func (s *RedisStore) Save(ctx context.Context, snap predictor.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.r.Set(ctx, s.key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (predictor.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.r.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return predictor.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return predictor.Snapshot{}, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}
	var snap predictor.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return predictor.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Close() error {
	return s.r.Close()
}
