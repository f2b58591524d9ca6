package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/lish_client/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session in redis for deployments where the client
// outlives a single process (kiosks, shared terminals).
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, deviceID string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    sessionKey(deviceID),
		ttl:    24 * time.Hour,
	}
}

func (r *RedisStore) Load(ctx context.Context) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var s domain.Session
	if err2 := json.Unmarshal(data, &s); err2 != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err2)
	}

	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *domain.Session) error {
	jsonSession, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	if ret := r.client.Set(ctx, r.key, string(jsonSession), r.ttl); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(deviceID string) string {
	return fmt.Sprintf("session:%s", deviceID)
}
