package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const historyPrefix = "embedchat:history:"

// RedisStore implements Store with one Redis list per session.
// Redis key expiry provides the TTL.
type RedisStore struct {
	rdb    *redis.Client
	limits Limits
}

// NewRedisStore connects to the server at url, e.g. redis://localhost:6379/0.
func NewRedisStore(url string, limits Limits) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), limits), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *redis.Client, limits Limits) *RedisStore {
	return &RedisStore{rdb: rdb, limits: limits}
}

// Append pushes entries, trims the list and refreshes its expiry in one transaction.
func (s *RedisStore) Append(ctx context.Context, sessionID string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		values = append(values, data)
	}

	key := historyPrefix + sessionID
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.limits.MaxEntries > 0 {
			pipe.LTrim(ctx, key, int64(-s.limits.MaxEntries), -1)
		}
		if s.limits.TTL > 0 {
			pipe.Expire(ctx, key, s.limits.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// History returns the session entries and refreshes the expiry.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]Entry, error) {
	key := historyPrefix + sessionID
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}

	if len(entries) > 0 && s.limits.TTL > 0 {
		if err := s.rdb.Expire(ctx, key, s.limits.TTL).Err(); err != nil {
			return nil, fmt.Errorf("failed to refresh history: %w", err)
		}
	}
	return entries, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
