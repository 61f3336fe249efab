package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCookieStore keeps an account's cookie jar in Redis as a JSON string
type RedisCookieStore struct {
	redis   *RedisClient
	account string
	ttl     time.Duration
}

// NewRedisCookieStore creates a store keyed by account
func NewRedisCookieStore(redisClient *RedisClient, account string, ttl time.Duration) *RedisCookieStore {
	return &RedisCookieStore{
		redis:   redisClient,
		account: account,
		ttl:     ttl,
	}
}

// Ping reports whether Redis answers
func (s *RedisCookieStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}

func (s *RedisCookieStore) key() string {
	return fmt.Sprintf("cookies:%s", s.account)
}

// Save stores cookies as JSON string, replacing whatever was there
func (s *RedisCookieStore) Save(ctx context.Context, cookies []Cookie) error {
	//An empty jar is stored as [] rather than null
	if cookies == nil {
		cookies = []Cookie{}
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	//Save with TTL so stale sessions expire on their own
	if err := s.redis.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	slog.Debug("cookies saved to Redis", "key", s.key(), "count", len(cookies))
	return nil
}

// Load retrieves cookies
func (s *RedisCookieStore) Load(ctx context.Context) ([]Cookie, error) {
	//Get the JSON string from Redis
	data, err := s.redis.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCookies
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	//Unmarshal JSON to cookie slice
	var cookies []Cookie
	if err := json.Unmarshal([]byte(data), &cookies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}

	return cookies, nil
}
