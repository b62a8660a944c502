package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*checkout.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var s checkout.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *checkout.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(s.ID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ttl spreads expirations by up to a minute
func (r *RedisStore) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(60)) * time.Second
	return r.baseTTL + jitter
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}
