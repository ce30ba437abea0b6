package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// windowTTL expires windows of actors that stopped playing.
const windowTTL = 7 * 24 * time.Hour

// RedisWindowStore keeps each actor's recent bets in a capped list, newest
// at the head.
type RedisWindowStore struct {
	client redis.UniversalClient
}

// NewRedisWindowStore creates a new Redis-backed window store.
func NewRedisWindowStore(client redis.UniversalClient) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

// Append implements signal.WindowStore.
func (r *RedisWindowStore) Append(ctx context.Context, ev actor.BetEvent, max int) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal bet %d of actor %d: %w", ev.Seq, ev.ActorID, err)
	}

	key := windowKey(ev.ActorID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, int64(max-1))
		pipe.Expire(ctx, key, windowTTL)
		return nil
	})
	if err != nil {
		logrus.Errorf("failed to append bet for actor %d: %v", ev.ActorID, err)
		return fmt.Errorf("failed to append bet: %w", err)
	}
	return nil
}

// Recent implements signal.WindowStore. The result is oldest first.
func (r *RedisWindowStore) Recent(ctx context.Context, actorID int, n int) ([]actor.BetEvent, error) {
	raw, err := r.client.LRange(ctx, windowKey(actorID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load window of actor %d: %w", actorID, err)
	}

	out := make([]actor.BetEvent, len(raw))
	for i, item := range raw {
		var ev actor.BetEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bet of actor %d: %w", actorID, err)
		}
		out[len(raw)-1-i] = ev
	}
	return out, nil
}
