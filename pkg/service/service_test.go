package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

var t0 = time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

var jurisdictions = map[string]intervention.Jurisdiction{
	"uk": {Name: "uk", MonthlyCap: 100, DailyCap: 60, AllowedTypes: intervention.Types()},
}

func approve(amount float64, at time.Time) intervention.Approval {
	return intervention.Approval{ProposalID: "p", ActorID: 1, Type: intervention.Cashback, Amount: amount, At: at}
}

func decideWith(a intervention.Approval) func(intervention.ComplianceState) intervention.Decision {
	p := intervention.Proposal{ActorID: a.ActorID, Type: a.Type, Amount: a.Amount}
	return func(st intervention.ComplianceState) intervention.Decision {
		return intervention.Evaluate(p, st, jurisdictions, a.At)
	}
}

type complianceStore interface {
	intervention.ComplianceStore
	Approvals(ctx context.Context, actorID int) ([]intervention.Approval, error)
}

func complianceContract(t *testing.T, store complianceStore) {
	ctx := context.Background()

	if _, err := store.Load(ctx, 1, t0); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("Expected ErrUnknownActor before enrollment, got %v", err)
	}
	if err := store.Enroll(ctx, intervention.ComplianceState{ActorID: 1, Jurisdiction: "uk"}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	d, err := store.Apply(ctx, approve(40, t0), decideWith(approve(40, t0)))
	if err != nil || !d.Approved {
		t.Fatalf("first approval: %+v, %v", d, err)
	}

	// same day: daily cap of 60 blocks a second 40
	d, err = store.Apply(ctx, approve(40, t0.Add(10*time.Minute)), decideWith(approve(40, t0.Add(10*time.Minute))))
	if err != nil || d.Approved {
		t.Fatalf("Expected daily cap rejection, got %+v, %v", d, err)
	}

	st, err := store.Load(ctx, 1, t0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.MonthlyTotal != 40 || st.DailyTotal != 40 || !st.LastApprovedAt.Equal(t0) {
		t.Errorf("Unexpected state after approval: %+v", st)
	}

	// next day is a new month: both totals reset
	next := t0.Add(2 * time.Hour)
	st, _ = store.Load(ctx, 1, next)
	if st.MonthlyTotal != 0 || st.DailyTotal != 0 {
		t.Errorf("Expected fresh totals in April, got %+v", st)
	}

	approvals, err := store.Approvals(ctx, 1)
	if err != nil || len(approvals) != 1 || approvals[0].Amount != 40 {
		t.Errorf("Unexpected approvals: %+v, %v", approvals, err)
	}

	if err := store.Enroll(ctx, intervention.ComplianceState{ActorID: 2, Jurisdiction: "uk", Excluded: true, CoolingOffUntil: t0.Add(time.Hour)}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	st, _ = store.Load(ctx, 2, t0)
	if !st.Excluded || !st.CoolingOffUntil.Equal(t0.Add(time.Hour)) {
		t.Errorf("Unexpected enrolled state: %+v", st)
	}
}

func TestMemoryComplianceStore(t *testing.T) {
	complianceContract(t, NewMemoryComplianceStore())
}

func TestRedisComplianceStore(t *testing.T) {
	client, _ := setupTestRedis(t)
	complianceContract(t, NewRedisComplianceStore(client, RedisComplianceStoreConfig{}))
}

func TestRedisComplianceStore_ConcurrentApprovalsRespectCap(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisComplianceStore(client, RedisComplianceStoreConfig{MaxRetries: 100})
	ctx := context.Background()
	store.Enroll(ctx, intervention.ComplianceState{ActorID: 1, Jurisdiction: "uk"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := approve(10, t0.Add(-time.Duration(i)*24*time.Hour))
			if _, err := store.Apply(ctx, a, decideWith(a)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	approvals, err := store.Approvals(ctx, 1)
	if err != nil {
		t.Fatalf("Approvals: %v", err)
	}
	total := 0.0
	for _, a := range approvals {
		total += a.Amount
	}
	if total > 100 {
		t.Errorf("approved %.2f in March, cap is 100", total)
	}
	if len(approvals) != 10 {
		t.Errorf("Expected all 10 approvals of 10 to fit the cap, got %d", len(approvals))
	}
}

func TestRedisWindowStore(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisWindowStore(client)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := store.Append(ctx, actor.BetEvent{ActorID: 3, Seq: i, Stake: float64(i)}, 3); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	window, err := store.Recent(ctx, 3, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(window) != 3 {
		t.Fatalf("Expected 3 bets, got %d", len(window))
	}
	for i, want := range []int{3, 4, 5} {
		if window[i].Seq != want {
			t.Errorf("window[%d].Seq = %d, want %d", i, window[i].Seq, want)
		}
	}

	empty, err := store.Recent(ctx, 99, 3)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty window, got %v, %v", empty, err)
	}
}
