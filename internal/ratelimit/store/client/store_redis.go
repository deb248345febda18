package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tillgate/internal/ratelimit/models"
	"tillgate/pkg/platform/middleware/requesttime"
)

const (
	windowKeyPrefix = "tillgate:win:"
	blockKeyPrefix  = "tillgate:block:"
)

// RedisStore implements Store on a shared Redis instance so multiple server
// instances see one admission table. The sliding window is a sorted set
// scored by request time; the punitive block is a plain key with a TTL.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// admitScript runs the whole block-check, prune, count, append sequence
// server-side so concurrent instances cannot interleave between steps.
//
// KEYS[1] block key, KEYS[2] window key.
// ARGV: now (ns), cutoff (ns), max requests, block TTL (ms), window TTL (ms).
var admitScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	return {'blocked', ttl}
end
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[2])
if count >= tonumber(ARGV[3]) then
	redis.call('SET', KEYS[1], '1', 'PX', ARGV[4])
	return {'limited'}
end
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[1] .. ':' .. count)
redis.call('PEXPIRE', KEYS[2], ARGV[5])
local oldest = redis.call('ZRANGE', KEYS[2], 0, 0, 'WITHSCORES')
return {'allowed', count, oldest[2]}
`)

func (s *RedisStore) Admit(ctx context.Context, address string, window time.Duration, maxRequests int, blockFor time.Duration) (*models.Result, error) {
	now := requesttime.Now(ctx)
	keys := []string{blockKeyPrefix + address, windowKeyPrefix + address}
	args := []any{
		strconv.FormatInt(now.UnixNano(), 10),
		strconv.FormatInt(now.Add(-window).UnixNano(), 10),
		maxRequests,
		blockFor.Milliseconds(),
		window.Milliseconds(),
	}

	reply, err := admitScript.Run(ctx, s.client, keys, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("run admit script: %w", err)
	}
	if len(reply) == 0 {
		return nil, fmt.Errorf("admit script: empty reply")
	}

	verdict, _ := reply[0].(string)
	switch verdict {
	case "blocked":
		ms, _ := reply[1].(int64)
		remaining := time.Duration(ms) * time.Millisecond
		return &models.Result{
			Allowed:    false,
			Limit:      maxRequests,
			Remaining:  0,
			ResetAt:    now.Add(remaining),
			RetryAfter: ceilSeconds(remaining),
			Reason:     models.ReasonBlocked,
		}, nil
	case "limited":
		return &models.Result{
			Allowed:    false,
			Limit:      maxRequests,
			Remaining:  0,
			ResetAt:    now.Add(blockFor),
			RetryAfter: ceilSeconds(blockFor),
			Reason:     models.ReasonLimitExceeded,
		}, nil
	case "allowed":
		count, _ := reply[1].(int64)
		resetAt := now.Add(window)
		if len(reply) > 2 {
			if raw, ok := reply[2].(string); ok {
				if score, perr := strconv.ParseFloat(raw, 64); perr == nil {
					resetAt = time.Unix(0, int64(score)).Add(window)
				}
			}
		}
		return &models.Result{
			Allowed:   true,
			Limit:     maxRequests,
			Remaining: maxRequests - int(count) - 1,
			ResetAt:   resetAt,
		}, nil
	}
	return nil, fmt.Errorf("admit script: unexpected verdict %v", reply[0])
}

func (s *RedisStore) Reset(ctx context.Context, address string) error {
	return s.client.Del(ctx, windowKeyPrefix+address, blockKeyPrefix+address).Err()
}

func (s *RedisStore) ResetAll(ctx context.Context) error {
	for _, prefix := range []string{windowKeyPrefix, blockKeyPrefix} {
		if err := s.deleteByPrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) ListBlocked(ctx context.Context) ([]models.BlockedClient, error) {
	now := requesttime.Now(ctx)

	var blocked []models.BlockedClient
	iter := s.client.Scan(ctx, 0, blockKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			continue
		}
		blocked = append(blocked, models.BlockedClient{
			Address:      key[len(blockKeyPrefix):],
			BlockedUntil: now.Add(ttl),
			RetryAfter:   ceilSeconds(ttl),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan blocked clients: %w", err)
	}
	return blocked, nil
}

// Sweep is a no-op for Redis: key TTLs already bound retention.
func (s *RedisStore) Sweep(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, windowKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan window keys: %w", err)
	}
	return count, nil
}

func (s *RedisStore) deleteByPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
