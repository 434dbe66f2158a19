package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicerelay/voicerelay/pkg/core/types"
)

const redisKeyPrefix = "voicerelay:snapshot:"

// RedisStore backs the snapshot store with Redis so sessions can resume
// across gateway processes. Expiry is enforced by key TTL, so an expired
// snapshot is already gone by the time Restore looks for it.
type RedisStore struct {
	client *redis.Client
	expiry time.Duration
}

func NewRedisStore(addr, password string, expiry time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		expiry: expiry,
	}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, history []types.Message) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sessionID, payload, s.expiry).Err(); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Restore(ctx context.Context, sessionID string) ([]types.Message, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore snapshot for %s: %w", sessionID, err)
	}

	var history []types.Message
	if err := json.Unmarshal(payload, &history); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot for %s: %w", sessionID, err)
	}
	return history, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete snapshot for %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
