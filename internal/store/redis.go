package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/ticketboard/internal/model"
)

// redisSnapshot is the JSON document stored under the snapshot key.
type redisSnapshot struct {
	SavedAt time.Time        `json:"saved_at"`
	Board   model.BoardState `json:"board"`
}

// RedisStore implements SnapshotStore as a single JSON document in Redis.
// A zero TTL keeps the snapshot until it is overwritten.
type RedisStore struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
	owned bool
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, key string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	s := NewRedisStoreWithClient(client, key, ttl)
	s.owned = true
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client. Close leaves the
// client open.
func NewRedisStoreWithClient(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	if key == "" {
		key = "ticketboard:state"
	}
	return &RedisStore{redis: client, key: key, ttl: ttl}
}

// SaveBoard implements SnapshotStore.
func (s *RedisStore) SaveBoard(ctx context.Context, state model.BoardState) error {
	data, err := sonic.ConfigStd.Marshal(redisSnapshot{SavedAt: time.Now().UTC(), Board: state})
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadBoard implements SnapshotStore. A snapshot that cannot be decoded
// is deleted and reported as missing.
func (s *RedisStore) LoadBoard(ctx context.Context) (model.BoardState, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return model.BoardState{}, err
	}
	return snap.Board.Clone(), nil
}

// SavedAt implements SnapshotStore.
func (s *RedisStore) SavedAt(ctx context.Context) (time.Time, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return snap.SavedAt, nil
}

func (s *RedisStore) load(ctx context.Context) (redisSnapshot, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return redisSnapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return redisSnapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap redisSnapshot
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		_ = s.redis.Del(ctx, s.key).Err()
		return redisSnapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

// Close implements SnapshotStore.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.redis.Close()
}
