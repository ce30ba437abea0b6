package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisComplianceStore keeps one hash per actor. Approvals run inside
// WATCH/MULTI so a concurrent write aborts and the decision is re-run.
type RedisComplianceStore struct {
	client redis.UniversalClient
	cfg    RedisComplianceStoreConfig
}

type RedisComplianceStoreConfig struct {
	// MaxRetries bounds how often an aborted transaction is re-run.
	MaxRetries int
}

// NewRedisComplianceStore creates a new Redis-backed compliance store.
func NewRedisComplianceStore(
	client redis.UniversalClient,
	cfg RedisComplianceStoreConfig,
) *RedisComplianceStore {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	return &RedisComplianceStore{
		client: client,
		cfg:    cfg,
	}
}

// Enroll writes the actor's static compliance fields.
func (r *RedisComplianceStore) Enroll(ctx context.Context, st intervention.ComplianceState) error {
	fields := map[string]interface{}{
		fieldJurisdiction: st.Jurisdiction,
		fieldExcluded:     boolField(st.Excluded),
	}
	if !st.CoolingOffUntil.IsZero() {
		fields[fieldCoolingOffUntil] = st.CoolingOffUntil.UTC().Format(time.RFC3339Nano)
	}
	if err := r.client.HSet(ctx, complianceKey(st.ActorID), fields).Err(); err != nil {
		return fmt.Errorf("failed to enroll actor %d: %w", st.ActorID, err)
	}
	return nil
}

// Load returns the actor's compliance state as of now.
func (r *RedisComplianceStore) Load(ctx context.Context, actorID int, now time.Time) (intervention.ComplianceState, error) {
	data, err := r.client.HGetAll(ctx, complianceKey(actorID)).Result()
	if err != nil {
		return intervention.ComplianceState{}, fmt.Errorf("failed to load compliance for actor %d: %w", actorID, err)
	}
	return parseCompliance(actorID, data, now)
}

// Apply implements intervention.ComplianceStore.
func (r *RedisComplianceStore) Apply(ctx context.Context, a intervention.Approval, decide func(intervention.ComplianceState) intervention.Decision) (intervention.Decision, error) {
	key := complianceKey(a.ActorID)
	var decision intervention.Decision

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		st, err := parseCompliance(a.ActorID, data, a.At)
		if err != nil {
			return err
		}

		decision = decide(st)
		if !decision.Approved {
			return nil
		}

		record, err := json.Marshal(a)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HIncrByFloat(ctx, key, monthlyField(a.At), a.Amount)
			pipe.HIncrByFloat(ctx, key, dailyField(a.At), a.Amount)
			pipe.HSet(ctx, key, fieldLastApprovedAt, a.At.UTC().Format(time.RFC3339Nano))
			pipe.RPush(ctx, approvalsKey(a.ActorID), record)
			return nil
		})
		return err
	}

	for i := 0; i < r.cfg.MaxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return decision, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logrus.WithField("actor_id", a.ActorID).Debug("compliance transaction aborted, retrying")
			continue
		}
		return intervention.Decision{}, fmt.Errorf("failed to apply approval for actor %d: %w", a.ActorID, err)
	}
	return intervention.Decision{}, fmt.Errorf("compliance transaction for actor %d kept aborting after %d tries", a.ActorID, r.cfg.MaxRetries)
}

// Approvals returns the recorded approvals of an actor, oldest first.
func (r *RedisComplianceStore) Approvals(ctx context.Context, actorID int) ([]intervention.Approval, error) {
	raw, err := r.client.LRange(ctx, approvalsKey(actorID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load approvals for actor %d: %w", actorID, err)
	}
	out := make([]intervention.Approval, 0, len(raw))
	for _, item := range raw {
		var a intervention.Approval
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approval for actor %d: %w", actorID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func parseCompliance(actorID int, data map[string]string, now time.Time) (intervention.ComplianceState, error) {
	st := intervention.ComplianceState{ActorID: actorID}
	if len(data) == 0 {
		return st, fmt.Errorf("compliance for actor %d: %w", actorID, ErrUnknownActor)
	}

	st.Jurisdiction = data[fieldJurisdiction]
	st.Excluded = data[fieldExcluded] == "1"

	var err error
	if st.CoolingOffUntil, err = parseTime(data[fieldCoolingOffUntil]); err != nil {
		return st, fmt.Errorf("actor %d %s: %w", actorID, fieldCoolingOffUntil, err)
	}
	if st.LastApprovedAt, err = parseTime(data[fieldLastApprovedAt]); err != nil {
		return st, fmt.Errorf("actor %d %s: %w", actorID, fieldLastApprovedAt, err)
	}
	if st.MonthlyTotal, err = parseAmount(data[monthlyField(now)]); err != nil {
		return st, fmt.Errorf("actor %d monthly total: %w", actorID, err)
	}
	if st.DailyTotal, err = parseAmount(data[dailyField(now)]); err != nil {
		return st, fmt.Errorf("actor %d daily total: %w", actorID, err)
	}
	return st, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func parseAmount(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return common.RoundMoney(f), nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
