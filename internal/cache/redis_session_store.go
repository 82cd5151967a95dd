package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docassist/internal/model"
)

// RedisSessionStore keeps each session as one JSON value with a sliding TTL.
type RedisSessionStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redisv9.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) GetSession(ctx context.Context, sessionID string) (*model.Session, bool, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session failed: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached session failed: %w", err)
	}
	return &session, true, nil
}

func (s *RedisSessionStore) SetSession(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(sessionID string) string {
	return "docassist:session:" + sessionID
}
