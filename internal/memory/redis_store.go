package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chat:memory:"

// RedisStore keeps each session as a redis list trimmed to the last maxTurns
// entries. Sessions expire after ttl without writes.
type RedisStore struct {
	client   *redisv9.Client
	maxTurns int
	ttl      time.Duration
}

func NewRedisStore(client *redisv9.Client, maxTurns int, ttl time.Duration) *RedisStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client:   client,
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]Turn, error) {
	raws, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get memory failed: %w", err)
	}

	turns := make([]Turn, 0, len(raws))
	for _, raw := range raws {
		var t Turn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("unmarshal memory turn failed: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID, role, text string) error {
	payload, err := json.Marshal(Turn{Role: role, Text: text, CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal memory turn failed: %w", err)
	}

	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append memory failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete memory failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan memory failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete memory failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}
