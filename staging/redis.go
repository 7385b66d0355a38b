package staging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const replayMarkerTTL = 24 * time.Hour

// RedisStore keeps staging slots in redis so they survive restarts and are
// shared across instances.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func slotKey(userID string) string { return "pending-order:" + userID }

func (s *RedisStore) Put(ctx context.Context, pending *PendingOrder) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, slotKey(pending.UserID), data, SlotTTL).Err()
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*PendingOrder, error) {
	data, err := s.rdb.Get(ctx, slotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingOrder
	}
	if err != nil {
		return nil, err
	}
	var pending PendingOrder
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, slotKey(userID)).Err()
}

// RedisReplayGuard tracks handled webhook deliveries with TTL'd keys.
type RedisReplayGuard struct {
	rdb *redis.Client
}

func NewRedisReplayGuard(rdb *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{rdb: rdb}
}

func (g *RedisReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	n, err := g.rdb.Exists(ctx, "webhook-seen:"+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisReplayGuard) Mark(ctx context.Context, key string) error {
	return g.rdb.Set(ctx, "webhook-seen:"+key, "1", replayMarkerTTL).Err()
}
