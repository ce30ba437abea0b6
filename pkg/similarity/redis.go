package similarity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const redisCorpusKey = "casino_retention:similarity:records"

// RedisStore keeps the corpus in a single Redis hash, one JSON record per
// field. Queries load the hash and search it in process.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore creates a Redis-backed corpus. An empty key uses the default.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = redisCorpusKey
	}
	return &RedisStore{client: client, key: key}
}

// Query implements Store.
func (r *RedisStore) Query(ctx context.Context, vector []float64, k int) ([]Neighbor, error) {
	data, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity corpus: %w", err)
	}

	records := make([]Record, 0, len(data))
	for id, raw := range data {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logrus.WithField("record_id", id).WithError(err).Warn("skipping unreadable similarity record")
			continue
		}
		records = append(records, rec)
	}
	return BruteForceSearch(vector, records, k), nil
}

// Upsert implements Store. HSETNX makes the write-once check atomic.
func (r *RedisStore) Upsert(ctx context.Context, rec Record) error {
	if !rec.Label.Valid() {
		return fmt.Errorf("record %s: invalid label %q", rec.ID, rec.Label)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	ok, err := r.client.HSetNX(ctx, r.key, rec.ID, data).Result()
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
	}
	if !ok {
		return fmt.Errorf("record %s: %w", rec.ID, ErrDuplicate)
	}
	return nil
}

// Count implements Store.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count similarity corpus: %w", err)
	}
	return int(n), nil
}
